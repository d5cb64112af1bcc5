package turn

import "errors"

// Frame is one outbound protocol message. A turn produces zero or more
// non-terminal frames followed by exactly one terminal frame.
type Frame struct {
	Message      string `json:"message"`
	TurnComplete bool   `json:"turn_complete"`
	Interrupted  bool   `json:"interrupted"`
}

// Terminal reports whether f ends its turn.
func (f Frame) Terminal() bool {
	return f.TurnComplete || f.Interrupted
}

// Fragment builds a non-terminal frame.
func Fragment(text string) Frame {
	return Frame{Message: text}
}

// Complete builds a turn_complete terminal frame.
func Complete(text string) Frame {
	return Frame{Message: text, TurnComplete: true}
}

// Interrupted builds an interrupted terminal frame.
func Interrupted(text string) Frame {
	return Frame{Message: text, Interrupted: true}
}

// Cancellation causes attached to a turn's context.
var (
	ErrInterrupted  = errors.New("turn interrupted")
	ErrAbandoned    = errors.New("turn abandoned by transport")
	ErrSuperseded   = errors.New("turn superseded by newer input")
	ErrRunnerClosed = errors.New("runner closed")
)

// Messages holds the user-visible texts of terminal frames the runner
// produces on its own.
type Messages struct {
	Superseded string
	Failure    string
	Timeout    string
	Busy       string
}

// DefaultMessages are in Thai, the product language.
var DefaultMessages = Messages{
	Superseded: "ข้อความก่อนหน้าถูกแทนที่ด้วยข้อความใหม่แล้วค่ะ",
	Failure:    "ขออภัยค่ะ เกิดข้อผิดพลาดในการประมวลผล กรุณาลองใหม่อีกครั้งค่ะ",
	Timeout:    "ขออภัยค่ะ ระบบใช้เวลาตอบนานเกินไป กรุณาลองใหม่อีกครั้งค่ะ",
	Busy:       "ระบบกำลังปิดการเชื่อมต่อของเซสชันนี้ กรุณาเชื่อมต่อใหม่ค่ะ",
}

func (m Messages) withDefaults() Messages {
	if m.Superseded == "" {
		m.Superseded = DefaultMessages.Superseded
	}
	if m.Failure == "" {
		m.Failure = DefaultMessages.Failure
	}
	if m.Timeout == "" {
		m.Timeout = DefaultMessages.Timeout
	}
	if m.Busy == "" {
		m.Busy = DefaultMessages.Busy
	}
	return m
}
