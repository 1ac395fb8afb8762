package matrix

// DeviceMatrix is the stamping surface handed to devices. Indices are 0-based;
// index 0 is the ground node.
type DeviceMatrix interface {
	AddElement(i, j int, value float64)
	AddRHS(i int, value float64)
}
