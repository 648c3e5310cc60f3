package chat

// Recorder receives turn-level observations. metrics.Recorder implements it.
type Recorder interface {
	ObserveGateDecision(outcome string)
	ObserveCategory(category string)
	ObserveChatError(kind string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveGateDecision(string) {}
func (noopRecorder) ObserveCategory(string)     {}
func (noopRecorder) ObserveChatError(string)    {}
