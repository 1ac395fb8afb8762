package consts

const (
	DefaultTimeStep  = 1e-5 // s
	DefaultEmitEvery = 300  // steps between oscilloscope frames
	DefaultDuration  = 1e-2 // s

	// Steps are counted as ceil(duration/dt - StepSlack) so that a duration
	// that is an exact multiple of dt does not gain a step to rounding.
	StepSlack = 1e-9

	GroundNode = 0
)
