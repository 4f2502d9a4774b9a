package ragchat

// Frame is a sealed interface representing one decoded protocol unit of a
// streaming chat response. Frames are consumed once and never retained.
// The unexported marker method prevents external implementations.
type Frame interface {
	frame()
}

// FrameSources carries the citation sources for the current answer.
// Method reports the retrieval route the server took ("rag" or "direct")
// and is empty when the server did not say.
type FrameSources struct {
	Sources []Source
	Method  string
}

func (FrameSources) frame() {}

// FrameContent carries a text delta to append to the current answer.
type FrameContent struct {
	Delta string
}

func (FrameContent) frame() {}

// FrameError reports an application-level failure of the current answer.
type FrameError struct {
	Message string
}

func (FrameError) frame() {}

// FrameEnd marks normal termination of the stream.
type FrameEnd struct{}

func (FrameEnd) frame() {}

// Interface compliance checks.
var (
	_ Frame = FrameSources{}
	_ Frame = FrameContent{}
	_ Frame = FrameError{}
	_ Frame = FrameEnd{}
)
