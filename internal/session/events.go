package session

import "github.com/kagebridge/gravitybridge/internal/detector"

// UiEventKind is the closed set of DOM events a SessionBridge surfaces to a
// chat transport as a transport-neutral descriptor.
type UiEventKind string

const (
	UiEventApproval UiEventKind = "approval"
	UiEventPlanning UiEventKind = "planning"
	UiEventError    UiEventKind = "error"
)

// UiEventDescriptor is a tagged variant describing one DOM event a chat
// transport should render; the core never knows how that rendering happens
// (buttons vs. inline text), only what buttons are available.
type UiEventDescriptor struct {
	Kind         UiEventKind
	Title        string
	Body         string
	ButtonLabels []string
}

func approvalDescriptor(sig detector.Signal) UiEventDescriptor {
	return UiEventDescriptor{
		Kind:         UiEventApproval,
		Title:        "Approval requested",
		Body:         sig.Description,
		ButtonLabels: []string{sig.ButtonText, "Deny"},
	}
}

func planningDescriptor(sig detector.Signal) UiEventDescriptor {
	return UiEventDescriptor{
		Kind:         UiEventPlanning,
		Title:        "Plan ready for review",
		Body:         sig.Description,
		ButtonLabels: []string{"Open plan", sig.ButtonText},
	}
}

func errorDescriptor(sig detector.ErrorSignal) UiEventDescriptor {
	return UiEventDescriptor{
		Kind:         UiEventError,
		Title:        sig.Title,
		Body:         sig.Body,
		ButtonLabels: []string{"Dismiss", "Retry", "Copy debug info"},
	}
}
