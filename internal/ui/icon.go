package ui

// iconBytes is a 16x16 RGBA PNG used as the tray icon.
var iconBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0xf3, 0xff, 0x61, 0x00, 0x00, 0x00,
	0x46, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0x60, 0xa0, 0x26, 0xd0,
	0xce, 0xd9, 0xf0, 0x9f, 0x18, 0x4c, 0x91, 0x21, 0x38, 0x35, 0x11, 0x63,
	0x08, 0x4e, 0x3d, 0xb8, 0x14, 0xe0, 0xd3, 0x8c, 0xd5, 0x00, 0x82, 0x0a,
	0x71, 0xa9, 0x25, 0x36, 0x90, 0x70, 0xaa, 0x23, 0x26, 0xb0, 0xf0, 0xaa,
	0xa1, 0xba, 0x01, 0x14, 0x79, 0x81, 0xa2, 0x40, 0xa4, 0x28, 0x1a, 0x29,
	0x4a, 0x48, 0x14, 0x27, 0x65, 0xaa, 0x66, 0x26, 0x52, 0x01, 0x00, 0xa5,
	0xf7, 0x10, 0xe0, 0xf0, 0x31, 0x27, 0x87, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}
