package sample

// Capture is a finished acquisition detached from the controller's buffers.
// It is what travels from the firmware (or the host simulation) to the analysis side.
type Capture struct {
	Seq       int
	RateHz    int
	Requested int
	IdealUS   uint32
	TimedOut  bool
	Codes     []uint16
	Stamps    []uint32 // nil for captures without timestamps
}

// Filled returns the number of valid samples.
func (c *Capture) Filled() int {
	return len(c.Codes)
}

// HasTimestamps reports whether every sample carries a timestamp.
func (c *Capture) HasTimestamps() bool {
	return c.Stamps != nil && len(c.Stamps) == len(c.Codes)
}
