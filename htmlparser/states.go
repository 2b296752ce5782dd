package htmlparser

import (
	sm "github.com/dpotapov/go-streamhtml/statemachine"
)

// State is the external state of the HTML parser.
type State int

const (
	StateText State = iota
	StateTag
	StateAttr
	StateValue
	StateComment
	StateJSFile
	StateCSSFile
	StateError
)

func (s State) String() string {
	switch s {
	case StateText:
		return "TEXT"
	case StateTag:
		return "TAG"
	case StateAttr:
		return "ATTR"
	case StateValue:
		return "VALUE"
	case StateComment:
		return "COMMENT"
	case StateJSFile:
		return "JS_FILE"
	case StateCSSFile:
		return "CSS_FILE"
	case StateError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Internal states.
const (
	stateText sm.State = iota + 1
	stateTagStart
	stateTagName
	stateDeclStart
	stateDeclBody
	stateComOpen
	stateComBody
	stateComDash
	stateComDashDash
	statePI
	statePIMayEnd
	stateTagSpace
	stateTagClose
	stateAttr
	stateAttrSpace
	stateValue
	stateValueText
	stateValueQStart
	stateValueQ
	stateValueDQStart
	stateValueDQ
	stateCdataText
	stateCdataLT
	stateCdataMayClose
	stateCdataComStart
	stateCdataComStartDash
	stateCdataComBody
	stateCdataComDash
	stateCdataComDashDash
	stateJSFile
	stateCSSFile
)

var states = func() *sm.Registry {
	r := sm.NewRegistry("html")
	r.Declare(map[sm.State]string{
		stateText:              "TEXT",
		stateTagStart:          "TAG_START",
		stateTagName:           "TAG_NAME",
		stateDeclStart:         "DECL_START",
		stateDeclBody:          "DECL_BODY",
		stateComOpen:           "COM_OPEN",
		stateComBody:           "COM_BODY",
		stateComDash:           "COM_DASH",
		stateComDashDash:       "COM_DASH_DASH",
		statePI:                "PI",
		statePIMayEnd:          "PI_MAY_END",
		stateTagSpace:          "TAG_SPACE",
		stateTagClose:          "TAG_CLOSE",
		stateAttr:              "ATTR",
		stateAttrSpace:         "ATTR_SPACE",
		stateValue:             "VALUE",
		stateValueText:         "VALUE_TEXT",
		stateValueQStart:       "VALUE_Q_START",
		stateValueQ:            "VALUE_Q",
		stateValueDQStart:      "VALUE_DQ_START",
		stateValueDQ:           "VALUE_DQ",
		stateCdataText:         "CDATA_TEXT",
		stateCdataLT:           "CDATA_LT",
		stateCdataMayClose:     "CDATA_MAY_CLOSE",
		stateCdataComStart:     "CDATA_COM_START",
		stateCdataComStartDash: "CDATA_COM_START_DASH",
		stateCdataComBody:      "CDATA_COM_BODY",
		stateCdataComDash:      "CDATA_COM_DASH",
		stateCdataComDashDash:  "CDATA_COM_DASH_DASH",
		stateJSFile:            "JS_FILE",
		stateCSSFile:           "CSS_FILE",
	})
	return r
}()

const (
	def = sm.DefaultExpr
	// whitespace as defined by HTML.
	space = " \t\n\r\f"
)

// Each state lists its default first.
var rules = []sm.Rule{
	{From: stateText, Expr: def, To: stateText},
	{From: stateText, Expr: "<", To: stateTagStart},

	{From: stateTagStart, Expr: def, To: stateText},
	{From: stateTagStart, Expr: "a-zA-Z/", To: stateTagName},
	{From: stateTagStart, Expr: "!", To: stateDeclStart},
	{From: stateTagStart, Expr: "?", To: statePI},
	{From: stateTagStart, Expr: "<", To: stateTagStart},

	{From: stateTagName, Expr: def, To: stateTagName},
	{From: stateTagName, Expr: space, To: stateTagSpace},
	{From: stateTagName, Expr: ">", To: stateTagClose},
	{From: stateTagName, Expr: "/", To: stateTagSpace},

	{From: stateTagSpace, Expr: def, To: stateAttr},
	{From: stateTagSpace, Expr: space + "/", To: stateTagSpace},
	{From: stateTagSpace, Expr: ">", To: stateTagClose},

	{From: stateTagClose, Expr: def, To: stateText},
	{From: stateTagClose, Expr: "<", To: stateTagStart},

	{From: stateAttr, Expr: def, To: stateAttr},
	{From: stateAttr, Expr: space, To: stateAttrSpace},
	{From: stateAttr, Expr: "=", To: stateValue},
	{From: stateAttr, Expr: ">", To: stateTagClose},
	{From: stateAttr, Expr: "/", To: stateTagSpace},

	{From: stateAttrSpace, Expr: def, To: stateAttr},
	{From: stateAttrSpace, Expr: space, To: stateAttrSpace},
	{From: stateAttrSpace, Expr: "=", To: stateValue},
	{From: stateAttrSpace, Expr: ">", To: stateTagClose},
	{From: stateAttrSpace, Expr: "/", To: stateTagSpace},

	{From: stateValue, Expr: def, To: stateValueText},
	{From: stateValue, Expr: space, To: stateValue},
	{From: stateValue, Expr: ">", To: stateTagClose},
	{From: stateValue, Expr: "'", To: stateValueQStart},
	{From: stateValue, Expr: `"`, To: stateValueDQStart},

	{From: stateValueText, Expr: def, To: stateValueText},
	{From: stateValueText, Expr: space, To: stateTagSpace},
	{From: stateValueText, Expr: ">", To: stateTagClose},

	{From: stateValueQStart, Expr: def, To: stateValueQ},
	{From: stateValueQStart, Expr: "'", To: stateTagSpace},
	{From: stateValueQ, Expr: def, To: stateValueQ},
	{From: stateValueQ, Expr: "'", To: stateTagSpace},

	{From: stateValueDQStart, Expr: def, To: stateValueDQ},
	{From: stateValueDQStart, Expr: `"`, To: stateTagSpace},
	{From: stateValueDQ, Expr: def, To: stateValueDQ},
	{From: stateValueDQ, Expr: `"`, To: stateTagSpace},

	{From: stateDeclStart, Expr: def, To: stateDeclBody},
	{From: stateDeclStart, Expr: "-", To: stateComOpen},
	{From: stateDeclStart, Expr: ">", To: stateText},
	{From: stateDeclBody, Expr: def, To: stateDeclBody},
	{From: stateDeclBody, Expr: ">", To: stateText},

	{From: stateComOpen, Expr: def, To: stateDeclBody},
	{From: stateComOpen, Expr: "-", To: stateComBody},
	{From: stateComBody, Expr: def, To: stateComBody},
	{From: stateComBody, Expr: "-", To: stateComDash},
	{From: stateComDash, Expr: def, To: stateComBody},
	{From: stateComDash, Expr: "-", To: stateComDashDash},
	{From: stateComDashDash, Expr: def, To: stateComBody},
	{From: stateComDashDash, Expr: "-", To: stateComDashDash},
	{From: stateComDashDash, Expr: ">", To: stateText},

	{From: statePI, Expr: def, To: statePI},
	{From: statePI, Expr: "?", To: statePIMayEnd},
	{From: statePIMayEnd, Expr: def, To: statePI},
	{From: statePIMayEnd, Expr: "?", To: statePIMayEnd},
	{From: statePIMayEnd, Expr: ">", To: stateText},

	{From: stateCdataText, Expr: def, To: stateCdataText},
	{From: stateCdataText, Expr: "<", To: stateCdataLT},

	{From: stateCdataLT, Expr: def, To: stateCdataText},
	{From: stateCdataLT, Expr: "<", To: stateCdataLT},
	{From: stateCdataLT, Expr: "/", To: stateCdataMayClose},
	{From: stateCdataLT, Expr: "!", To: stateCdataComStart},

	{From: stateCdataMayClose, Expr: def, To: stateCdataText},
	{From: stateCdataMayClose, Expr: "a-zA-Z0-9", To: stateCdataMayClose},
	{From: stateCdataMayClose, Expr: "<", To: stateCdataLT},

	{From: stateCdataComStart, Expr: def, To: stateCdataText},
	{From: stateCdataComStart, Expr: "-", To: stateCdataComStartDash},
	{From: stateCdataComStart, Expr: "<", To: stateCdataLT},
	{From: stateCdataComStartDash, Expr: def, To: stateCdataText},
	{From: stateCdataComStartDash, Expr: "-", To: stateCdataComBody},
	{From: stateCdataComStartDash, Expr: "<", To: stateCdataLT},
	{From: stateCdataComBody, Expr: def, To: stateCdataComBody},
	{From: stateCdataComBody, Expr: "-", To: stateCdataComDash},
	{From: stateCdataComDash, Expr: def, To: stateCdataComBody},
	{From: stateCdataComDash, Expr: "-", To: stateCdataComDashDash},
	{From: stateCdataComDashDash, Expr: def, To: stateCdataComBody},
	{From: stateCdataComDashDash, Expr: "-", To: stateCdataComDashDash},
	{From: stateCdataComDashDash, Expr: ">", To: stateCdataText},

	{From: stateJSFile, Expr: def, To: stateJSFile},
	{From: stateCSSFile, Expr: def, To: stateCSSFile},
}

var grammar = sm.MustGrammar(sm.MustCompile(states, rules), map[sm.State]State{
	sm.ErrorState:          StateError,
	stateText:              StateText,
	stateTagStart:          StateTag,
	stateTagName:           StateTag,
	stateDeclStart:         StateText,
	stateDeclBody:          StateText,
	stateComOpen:           StateText,
	stateComBody:           StateComment,
	stateComDash:           StateComment,
	stateComDashDash:       StateComment,
	statePI:                StateText,
	statePIMayEnd:          StateText,
	stateTagSpace:          StateTag,
	stateTagClose:          StateText,
	stateAttr:              StateAttr,
	stateAttrSpace:         StateAttr,
	stateValue:             StateValue,
	stateValueText:         StateValue,
	stateValueQStart:       StateValue,
	stateValueQ:            StateValue,
	stateValueDQStart:      StateValue,
	stateValueDQ:           StateValue,
	stateCdataText:         StateText,
	stateCdataLT:           StateText,
	stateCdataMayClose:     StateText,
	stateCdataComStart:     StateText,
	stateCdataComStartDash: StateText,
	stateCdataComBody:      StateText,
	stateCdataComDash:      StateText,
	stateCdataComDashDash:  StateText,
	stateJSFile:            StateJSFile,
	stateCSSFile:           StateCSSFile,
}, stateText)

func isValueState(s sm.State) bool {
	return s >= stateValue && s <= stateValueDQ
}

// isValueContentState reports the value states that consume value characters, as
// opposed to the '=' and opening quote.
func isValueContentState(s sm.State) bool {
	return s == stateValueText || s == stateValueQ || s == stateValueDQ
}

func isCdataState(s sm.State) bool {
	return s >= stateCdataText && s <= stateCdataComDashDash
}

func isHTMLSpace(c rune) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}
