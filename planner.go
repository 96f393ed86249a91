package plcpoll

import "sort"

// addrRange is a contiguous run of count conventional addresses
// starting at address, all of the same kind. kind is carried on the
// range (not just derived from address) so shatter can pick the
// per-kind PDU limit and the poller the read function code. merge does
// not compare kinds: it keeps numerically adjacent bands of different
// kinds (e.g. 9999 Coil next to 10001 Discrete Input) apart by the
// 10000-wide block check alone.
type addrRange struct {
	kind    kind
	address uint32
	count   int
}

// shatter splits one logical range into the smallest number of
// PDU-legal chunks, each holding at most limit elements. limit <= 0
// means "use the protocol maximum for kind". A straightforward
// take-the-max-each-time loop, no look-ahead needed since every chunk
// but the last is exactly limit wide.
func shatter(k kind, address uint32, count int, limit int) []addrRange {
	if limit <= 0 {
		limit = kindLimit(k)
	}

	var out []addrRange

	for count > 0 {
		taken := count
		if taken > limit {
			taken = limit
		}

		out = append(out, addrRange{kind: k, address: address, count: taken})

		address += uint32(taken)
		count -= taken
	}

	return out
}

// merge coalesces a set of ranges that are within reach addresses of
// each other into larger ranges, then re-shatters each coalesced run
// back into PDU-legal chunks. This is how the poller turns a scattered
// set of individually-requested addresses into a small number of
// multi-register reads instead of one read per address.
//
// Two ranges are only ever merged when they share the same 10000-wide
// numbering block (address/10000 == otherAddress/10000): every kind
// boundary falls on one of these block edges, so this one check is
// what keeps merge from ever asking a device to read coils and holding
// registers in a single request. It is stricter than kind-equality
// alone inside the three extended bands (100001-165536 etc.), which
// each span several 10000 blocks of the same kind; those blocks simply
// never merge across their internal 10000 boundary either. reach <= 0
// defaults to 1, i.e. only strictly adjacent
// ranges merge.
func merge(ranges []addrRange, reach int, limit int) []addrRange {
	if reach <= 0 {
		reach = 1
	}

	if len(ranges) == 0 {
		return nil
	}

	sorted := make([]addrRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].address < sorted[j].address
	})

	var out []addrRange

	cur := sorted[0]

	flush := func(r addrRange) {
		out = append(out, shatter(r.kind, r.address, r.count, limit)...)
	}

	for _, next := range sorted[1:] {
		sameBlock := cur.address/10000 == next.address/10000
		within := next.address < cur.address+uint32(cur.count)+uint32(reach)

		if sameBlock && within {
			end := cur.address + uint32(cur.count)
			nextEnd := next.address + uint32(next.count)
			if nextEnd > end {
				cur.count += int(nextEnd - end)
			}
			continue
		}

		flush(cur)
		cur = next
	}

	flush(cur)

	return out
}
