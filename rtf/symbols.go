package rtf

// action is what a control word does when dispatched.
type action uint8

const (
	actChar action = iota
	actDest
	actProp
	actSpec
	actString
	actHighlight
	actBold
	actFontColor
	actStrike
	actItalic
	actUnderline
	actSectionSkip
)

// property identifies a formatting property updated by actProp.
type property uint8

const (
	propLeftIndent property = iota
	propRightIndent
	propFirstIndent
	propColumns
	propPageNumberX
	propPageNumberY
	propPaperWidth
	propPaperHeight
	propMarginLeft
	propMarginRight
	propMarginTop
	propMarginBottom
	propPageStart
	propSectionBreak
	propPageNumberFormat
	propFacingPages
	propLandscape
	propJustify
)

// special identifies an actSpec keyword.
type special uint8

const (
	specBin special = iota
	specHex
	specSkipDest
)

const (
	justLeft = iota
	justRight
	justCenter
	justFull
)

const (
	breakNone = iota
	breakColumn
	breakEven
	breakOdd
	breakPage
)

const (
	pageDecimal = iota
	pageUpperRoman
	pageLowerRoman
	pageUpperLetter
	pageLowerLetter
)

// symbol is one keyword table entry. arg is the property, special, or
// character, depending on act.
type symbol struct {
	dflt     int
	passDflt bool
	act      action
	arg      int
	text     string
}

type symbolTable map[string]symbol

func prop(p property, dflt int, passDflt bool) symbol {
	return symbol{dflt: dflt, passDflt: passDflt, act: actProp, arg: int(p)}
}

func char(r rune) symbol { return symbol{act: actChar, arg: int(r)} }

func str(s string) symbol { return symbol{act: actString, text: s} }

// sharedSymbols are identical in both modes.
func sharedSymbols() symbolTable {
	t := symbolTable{
		"b":        {dflt: 1, act: actBold},
		"ul":       {dflt: 1, act: actUnderline},
		"ulnone":   {dflt: 1, act: actUnderline},
		"i":        {dflt: 1, act: actItalic},
		"strike":   {dflt: 1, act: actStrike},
		"strikedl": {dflt: 1, act: actStrike},

		"li":        prop(propLeftIndent, 0, false),
		"ri":        prop(propRightIndent, 0, false),
		"fi":        prop(propFirstIndent, 0, false),
		"cols":      prop(propColumns, 1, false),
		"sbknone":   prop(propSectionBreak, breakNone, true),
		"sbkcol":    prop(propSectionBreak, breakColumn, true),
		"sbkeven":   prop(propSectionBreak, breakEven, true),
		"sbkodd":    prop(propSectionBreak, breakOdd, true),
		"sbkpage":   prop(propSectionBreak, breakPage, true),
		"pgnx":      prop(propPageNumberX, 0, false),
		"pgny":      prop(propPageNumberY, 0, false),
		"pgndec":    prop(propPageNumberFormat, pageDecimal, true),
		"pgnucrm":   prop(propPageNumberFormat, pageUpperRoman, true),
		"pgnlcrm":   prop(propPageNumberFormat, pageLowerRoman, true),
		"pgnucltr":  prop(propPageNumberFormat, pageUpperLetter, true),
		"pgnlcltr":  prop(propPageNumberFormat, pageLowerLetter, true),
		"ql":        prop(propJustify, justLeft, true),
		"qj":        prop(propJustify, justFull, true),
		"paperw":    prop(propPaperWidth, 12240, false),
		"paperh":    prop(propPaperHeight, 15480, false),
		"margl":     prop(propMarginLeft, 1800, false),
		"margr":     prop(propMarginRight, 1800, false),
		"margt":     prop(propMarginTop, 1440, false),
		"margb":     prop(propMarginBottom, 1440, false),
		"pgnstart":  prop(propPageStart, 1, true),
		"facingp":   prop(propFacingPages, 1, true),
		"landscape": prop(propLandscape, 1, true),

		"bin": {act: actSpec, arg: int(specBin)},
		"*":   {act: actSpec, arg: int(specSkipDest)},
		"'":   {act: actSpec, arg: int(specHex)},

		"leveltext": {act: actSectionSkip},

		"{":  char('{'),
		"}":  char('}'),
		"\\": char('\\'),

		"sect":   char('\n'),
		"page":   char('\f'),
		"pagebb": char('\f'),
		"bullet": char('•'),
		"~":      char(' '),
		"_":      char('-'),

		"column":   char('\t'),
		"cell":     char('\t'),
		"nestcell": char('\t'),
		"row":      char('\n'),
		"nestrow":  char('\n'),
	}
	for _, d := range []string{
		"author", "buptim", "colortbl", "comment", "creatim", "doccomm",
		"fonttbl", "footer", "footerf", "footerl", "footerr", "ftncn",
		"ftnsep", "ftnsepc", "header", "headerf", "headerl", "headerr",
		"info", "keywords", "operator", "pict", "printim", "private1",
		"revtim", "rxe", "stylesheet", "subject", "tc", "title", "txe", "xe",
	} {
		t[d] = symbol{act: actDest}
	}
	return t
}

var textSymbols = func() symbolTable {
	t := sharedSymbols()
	for k, v := range (symbolTable{
		// Right-aligned and centered paragraphs get a leading tab.
		"qc": char('\t'),
		"qr": char('\t'),

		"par":       char('\n'),
		"pard":      char('\n'),
		"\n":        char('\n'),
		"\r":        char('\n'),
		"footnote":  char('\n'),
		"line":      char('\n'),
		"tab":       char('\t'),
		"ldblquote": char('“'),
		"rdblquote": char('”'),
		"lquote":    char('‘'),
		"rquote":    char('’'),
		"emdash":    char('—'),
		"endash":    char('–'),
	}) {
		t[k] = v
	}
	return t
}()

const htmlBreak = "<br />\n"

var htmlSymbols = func() symbolTable {
	t := sharedSymbols()
	for k, v := range (symbolTable{
		"qc": prop(propJustify, justCenter, true),
		"qr": prop(propJustify, justRight, true),

		"par":       str(htmlBreak),
		"pard":      str(htmlBreak),
		"\n":        str(htmlBreak),
		"\r":        str(htmlBreak),
		"footnote":  str(htmlBreak),
		"line":      str(htmlBreak),
		"tab":       str("&nbsp;&nbsp;"),
		"ldblquote": str("&#8220;"),
		"rdblquote": str("&#8221;"),
		"lquote":    str("&#8216;"),
		"rquote":    str("&#8217;"),
		"emdash":    str("&mdash;"),
		"endash":    str("&ndash;"),

		"highlight": {act: actHighlight},
		"cb":        {act: actHighlight},
		"cf":        {act: actFontColor},
	}) {
		t[k] = v
	}
	return t
}()
