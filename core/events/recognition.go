package events

// KindRecognitionFault identifies speech-to-text faults.
const KindRecognitionFault Kind = "recognition.fault"

// RecognitionFault describes a speech-to-text engine fault.
type RecognitionFault struct {
	Base
	FaultKind   string
	Recoverable bool
	Err         error
}

// NewRecognitionFault creates a recognition fault event.
func NewRecognitionFault(kind string, recoverable bool, err error) RecognitionFault {
	return RecognitionFault{Base: NewBase(KindRecognitionFault), FaultKind: kind, Recoverable: recoverable, Err: err}
}
