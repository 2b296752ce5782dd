package jsparser

import (
	sm "github.com/dpotapov/go-streamhtml/statemachine"
)

// State is the external state of the JavaScript parser.
type State int

const (
	StateText State = iota
	StateQ
	StateDQ
	StateRegExp
	StateComment
	StateError
)

func (s State) String() string {
	switch s {
	case StateText:
		return "TEXT"
	case StateQ:
		return "Q"
	case StateDQ:
		return "DQ"
	case StateRegExp:
		return "REGEXP"
	case StateComment:
		return "COMMENT"
	case StateError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Internal states.
const (
	stateText sm.State = iota + 1
	stateQ
	stateQE
	stateDQ
	stateDQE
	stateSlash
	stateRegExpSlash
	stateRegExp
	stateRegExpBrk
	stateRegExpBrkE
	stateRegExpE
	stateComLn
	stateComML
	stateComMLClose
	stateComAfter
)

var states = func() *sm.Registry {
	r := sm.NewRegistry("js")
	r.Declare(map[sm.State]string{
		stateText:        "JS_TEXT",
		stateQ:           "JS_Q",
		stateQE:          "JS_Q_E",
		stateDQ:          "JS_DQ",
		stateDQE:         "JS_DQ_E",
		stateSlash:       "JS_SLASH",
		stateRegExpSlash: "JS_REGEXP_SLASH",
		stateRegExp:      "JS_REGEXP",
		stateRegExpBrk:   "JS_REGEXP_BRK",
		stateRegExpBrkE:  "JS_REGEXP_BRK_E",
		stateRegExpE:     "JS_REGEXP_E",
		stateComLn:       "JS_COM_LN",
		stateComML:       "JS_COM_ML",
		stateComMLClose:  "JS_COM_ML_CLOSE",
		stateComAfter:    "JS_COM_AFTER",
	})
	return r
}()

const def = sm.DefaultExpr

// Each state lists its default first.
var rules = []sm.Rule{
	{From: stateText, Expr: def, To: stateText},
	{From: stateText, Expr: "'", To: stateQ},
	{From: stateText, Expr: `"`, To: stateDQ},
	{From: stateText, Expr: "/", To: stateSlash},

	{From: stateQ, Expr: def, To: stateQ},
	{From: stateQ, Expr: `\`, To: stateQE},
	{From: stateQ, Expr: "'", To: stateText},
	{From: stateQE, Expr: def, To: stateQ},

	{From: stateDQ, Expr: def, To: stateDQ},
	{From: stateDQ, Expr: `\`, To: stateDQE},
	{From: stateDQ, Expr: `"`, To: stateText},
	{From: stateDQE, Expr: def, To: stateDQ},

	// A slash that cannot start a regular expression: division or comment.
	{From: stateSlash, Expr: def, To: stateText},
	{From: stateSlash, Expr: "/", To: stateComLn},
	{From: stateSlash, Expr: "*", To: stateComML},

	// A slash that opens a regular expression unless it starts a comment.
	{From: stateRegExpSlash, Expr: def, To: stateRegExp},
	{From: stateRegExpSlash, Expr: `\`, To: stateRegExpE},
	{From: stateRegExpSlash, Expr: "[", To: stateRegExpBrk},
	{From: stateRegExpSlash, Expr: "/", To: stateComLn},
	{From: stateRegExpSlash, Expr: "*", To: stateComML},

	{From: stateRegExp, Expr: def, To: stateRegExp},
	{From: stateRegExp, Expr: `\`, To: stateRegExpE},
	{From: stateRegExp, Expr: "[", To: stateRegExpBrk},
	{From: stateRegExp, Expr: "/", To: stateText},
	{From: stateRegExpE, Expr: def, To: stateRegExp},

	{From: stateRegExpBrk, Expr: def, To: stateRegExpBrk},
	{From: stateRegExpBrk, Expr: `\`, To: stateRegExpBrkE},
	{From: stateRegExpBrk, Expr: "]", To: stateRegExp},
	{From: stateRegExpBrkE, Expr: def, To: stateRegExpBrk},

	{From: stateComLn, Expr: def, To: stateComLn},
	{From: stateComLn, Expr: "\n", To: stateComAfter},

	{From: stateComML, Expr: def, To: stateComML},
	{From: stateComML, Expr: "*", To: stateComMLClose},
	{From: stateComMLClose, Expr: def, To: stateComML},
	{From: stateComMLClose, Expr: "*", To: stateComMLClose},
	{From: stateComMLClose, Expr: "/", To: stateComAfter},

	{From: stateComAfter, Expr: def, To: stateText},
	{From: stateComAfter, Expr: "'", To: stateQ},
	{From: stateComAfter, Expr: `"`, To: stateDQ},
	{From: stateComAfter, Expr: "/", To: stateSlash},
}

var grammar = sm.MustGrammar(sm.MustCompile(states, rules), map[sm.State]State{
	sm.ErrorState:    StateError,
	stateText:        StateText,
	stateQ:           StateQ,
	stateQE:          StateQ,
	stateDQ:          StateDQ,
	stateDQE:         StateDQ,
	stateSlash:       StateText,
	stateRegExpSlash: StateRegExp,
	stateRegExp:      StateRegExp,
	stateRegExpBrk:   StateRegExp,
	stateRegExpBrkE:  StateRegExp,
	stateRegExpE:     StateRegExp,
	stateComLn:       StateComment,
	stateComML:       StateComment,
	stateComMLClose:  StateComment,
	stateComAfter:    StateText,
}, stateText)
