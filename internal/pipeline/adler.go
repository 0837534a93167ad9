package pipeline

const adlerBase = 65521

// adler32Combine merges adler1 (the checksum of some prefix) with adler2
// (the checksum of a len2-byte block that follows it) into the checksum of
// their concatenation, without re-reading either block. Neither hash/adler32
// nor klauspost/compress exposes this, so it's ported from zlib's
// public-domain adler32_combine, the same formula the reference
// implementation's pure-Go fallback path uses.
func adler32Combine(adler1, adler2 uint32, len2 int) uint32 {
	rem := uint32(len2) % adlerBase
	sum1 := adler1 & 0xffff
	sum2 := rem * sum1 % adlerBase
	sum1 += (adler2 & 0xffff) + adlerBase - 1
	sum2 += ((adler1 >> 16) & 0xffff) + ((adler2 >> 16) & 0xffff) + adlerBase - rem

	if sum1 >= adlerBase {
		sum1 -= adlerBase
	}
	if sum1 >= adlerBase {
		sum1 -= adlerBase
	}
	if sum2 >= adlerBase<<1 {
		sum2 -= adlerBase << 1
	}
	if sum2 >= adlerBase {
		sum2 -= adlerBase
	}
	return sum2<<16 | sum1
}
