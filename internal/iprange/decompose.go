package iprange

// block is a CIDR block in integer form: base is the first address and
// bits is the prefix length. The block spans [base, base + 2^(width-bits) - 1]
// and base is always aligned to the block size.
type block struct {
	base uint128
	bits int
}

// decompose converts the inclusive address range [start, end] into the
// minimal ordered set of aligned power-of-two blocks that covers it
// exactly. width is the address width in bits (32 for IPv4, 128 for
// IPv6) and both bounds must satisfy start <= end within [0, 2^width-1].
//
// Prefix lengths are probed from 1 upward, so the full address space
// deliberately splits into the two /1 halves rather than a single /0:
// decomposing [0.0.0.0, 255.255.255.255] yields 0.0.0.0/1 and
// 128.0.0.0/1, and likewise [::, ff..ff] yields ::/1 and 8000::/1.
func decompose(start, end uint128, width int) []block {
	var out []block
	return appendBlocks(out, start, end, width)
}

// appendBlocks finds the coarsest prefix length at which at least one
// full aligned segment fits inside [start, end], emits the run of such
// segments, and recurses on the uncovered sub-ranges on either side.
// Each recursion strictly shrinks the range, and prefix length `width`
// always admits a segment (every address is aligned to itself), so the
// walk terminates in at most `width` levels.
func appendBlocks(out []block, start, end uint128, width int) []block {
	for p := 1; p <= width; p++ {
		hostBits := width - p
		hostMask := maskLow(hostBits)

		// blockStart: start rounded up to the next boundary of a
		// 2^hostBits segment. Rounding past the top of the address
		// space means no segment at this size begins within range.
		blockStart := start
		if !start.and(hostMask).isZero() {
			top := start.or(hostMask)
			if top.cmp(maskLow(width)) == 0 {
				continue
			}
			blockStart = top.addOne()
		}

		// blockEnd: end rounded down to the last address of the
		// previous segment boundary.
		blockEnd := end
		if end.and(hostMask).cmp(hostMask) != 0 {
			base := end.andNot(hostMask)
			if base.isZero() {
				continue
			}
			blockEnd = base.subOne()
		}

		if blockStart.cmp(blockEnd) > 0 {
			continue
		}

		// Leftover below the aligned band resolves at finer prefixes.
		if start.cmp(blockStart) < 0 {
			out = appendBlocks(out, start, blockStart.subOne(), width)
		}

		// Emit the full segments in ascending order. The band size can
		// equal the whole address space, so count the segments via the
		// span minus one to avoid overflowing 128 bits.
		n := blockEnd.sub(blockStart).shr(hostBits).lo + 1
		segSize := maskLow(hostBits).addOne()
		cur := blockStart
		for i := uint64(0); i < n; i++ {
			out = append(out, block{base: cur, bits: p})
			if i+1 < n {
				cur = cur.add(segSize)
			}
		}

		// Leftover above the aligned band.
		if blockEnd.cmp(end) < 0 {
			out = appendBlocks(out, blockEnd.addOne(), end, width)
		}

		return out
	}
	return out
}
