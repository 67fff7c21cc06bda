package machine

// frame is one entry of the locals stack (§4.E "locals: stack of
// int[]"): a fixed-size vector sized to nargs+nlocals for the function
// currently executing, all initially zero except the argument slots set
// by ENTER.
type frame struct {
	slots []int64
}
