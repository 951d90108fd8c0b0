package session

import "github.com/llm-playground/llm-playground/internal/frame"

// assembler folds interpreted frames into a State. It remembers which
// assistant turn belongs to the stream that is currently open.
type assembler struct {
	current int
}

func newAssembler() assembler {
	return assembler{current: -1}
}

// begin forgets the previous stream; the next token opens a new turn.
func (a *assembler) begin() {
	a.current = -1
}

// fold applies f to st using the streaming mode of the running turn and
// reports whether the frame ended the turn.
func (a *assembler) fold(st *State, f frame.Frame, streaming bool) bool {
	switch f.Kind {
	case frame.KindToken:
		if streaming {
			a.extend(st, f.Text)
			if st.Status == StatusThinking {
				st.Status = StatusAwaitingAssistant
			}
			return false
		}
		st.Turns = append(st.Turns, Turn{Role: RoleAssistant, Content: f.Text})
		a.current = -1
		st.Status = StatusIdle
		return true

	case frame.KindEndOfStream:
		a.current = -1
		st.Status = StatusIdle
		return true

	case frame.KindError:
		st.Status = StatusErrored
		st.Failure = &Failure{Kind: FailureProtocol, Message: f.Text}
		return true

	default:
		st.Status = StatusErrored
		st.Failure = &Failure{Kind: FailureMalformed, Message: f.Text}
		return true
	}
}

func (a *assembler) extend(st *State, text string) {
	last := len(st.Turns) - 1
	if a.current >= 0 && a.current == last && st.Turns[last].Role == RoleAssistant {
		st.Turns[last].Content += text
		return
	}
	st.Turns = append(st.Turns, Turn{Role: RoleAssistant, Content: text})
	a.current = len(st.Turns) - 1
}
