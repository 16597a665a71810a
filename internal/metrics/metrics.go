package metrics

type Recorder interface {
	BlockCaptured()
	ChunkSent(bytes int)
	ChunkDropped()
	SendFailed()
	MessageReceived()
	DecodeFailed()
	StreamStateChanged(state string)
}

type nop struct{}

func (nop) BlockCaptured()            {}
func (nop) ChunkSent(int)             {}
func (nop) ChunkDropped()             {}
func (nop) SendFailed()               {}
func (nop) MessageReceived()          {}
func (nop) DecodeFailed()             {}
func (nop) StreamStateChanged(string) {}

var Nop Recorder = nop{}
