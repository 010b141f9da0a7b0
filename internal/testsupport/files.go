package testsupport

// PNGBytes returns a minimal valid PNG file: an 8-byte signature followed by
// empty IHDR/IEND chunks is enough for upload tests, which never decode pixels.
func PNGBytes() []byte {
	return []byte{
		0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n',
		0, 0, 0, 0, 'I', 'H', 'D', 'R', 0, 0, 0, 0,
		0, 0, 0, 0, 'I', 'E', 'N', 'D', 0xae, 0x42, 0x60, 0x82,
	}
}
