package workbook

import (
	"strconv"
	"strings"
	"unicode"
)

// TokenType represents the kinds of token the reference lexer produces
type TokenType int

const (
	TokenText      TokenType = iota // operators, functions, names, numbers: copied verbatim
	TokenString                     // a "quoted" literal, never scanned for references
	TokenReference                  // a cell, area, row or column reference
)

// ReferenceKind distinguishes the shapes a reference can take
type ReferenceKind int

const (
	RefCell    ReferenceKind = iota // B2
	RefArea                         // A1:C3
	RefRows                         // 2:4
	RefColumns                      // B:D
)

// character classification constants. slightly easier to read.
const (
	charNull       = 0
	charQuote      = '"'
	charApostrophe = '\''
	charDollar     = '$'
	charColon      = ':'
	charExclaim    = '!'
	charHash       = '#'
	charUnderscore = '_'
	charPeriod     = '.'
	charBackslash  = '\\'
	charLParen     = '('
)

// Token represents a lexical token with position information
type Token struct {
	Type  TokenType
	Value string     // the input text covered by the token
	Pos   int        // rune position in input
	Ref   *Reference // set for TokenReference
}

// refPart is one end of a reference. row or column is 0 when the reference
// is a whole-column or whole-row reference.
type refPart struct {
	row    uint32
	col    uint32
	rowAbs bool
	colAbs bool
}

func (p refPart) along(a Axis) uint32 {
	if a == Rows {
		return p.row
	}
	return p.col
}

func (p *refPart) set(a Axis, v uint32) {
	if a == Rows {
		p.row = v
	} else {
		p.col = v
	}
}

func (p refPart) String() string {
	var sb strings.Builder
	if p.col != 0 {
		if p.colAbs {
			sb.WriteByte(charDollar)
		}
		sb.WriteString(ColumnLetters(p.col))
	}
	if p.row != 0 {
		if p.rowAbs {
			sb.WriteByte(charDollar)
		}
		sb.WriteString(strconv.FormatUint(uint64(p.row), 10))
	}
	return sb.String()
}

// Reference is a parsed A1 reference with its "$" markers and the sheet
// prefix exactly as written
type Reference struct {
	Sheet     string // unquoted sheet name, "" when unqualified
	Kind      ReferenceKind
	sheetText string // prefix as written, including "!"
	first     refPart
	last      refPart
}

// Range returns the area the reference covers under the given limits
func (r *Reference) Range(limits Limits) RangeAddress {
	switch r.Kind {
	case RefRows:
		return limits.Rows(r.first.row, r.last.row)
	case RefColumns:
		return limits.Columns(r.first.col, r.last.col)
	}
	return RangeAddress{
		First: Coordinate{Row: r.first.row, Column: r.first.col},
		Last:  Coordinate{Row: r.last.row, Column: r.last.col},
	}
}

func (r *Reference) setSpan(a Axis, first, last uint32) {
	r.first.set(a, first)
	r.last.set(a, last)
}

// setSheet replaces the sheet prefix, quoting the name when required
func (r *Reference) setSheet(name string) {
	r.Sheet = name
	r.sheetText = QuoteSheetName(name) + "!"
}

// String renders the reference back to A1 text
func (r *Reference) String() string {
	if r.Kind == RefCell {
		return r.sheetText + r.first.String()
	}
	return r.sheetText + r.first.String() + ":" + r.last.String()
}

// QuoteSheetName returns the sheet name as it must appear in a formula
func QuoteSheetName(name string) string {
	plain := name != "" && !unicode.IsDigit([]rune(name)[0]) && !isCellText(strings.ToUpper(name))
	for _, ch := range name {
		if !isNameChar(ch) {
			plain = false
			break
		}
	}
	if plain {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func isNameChar(ch rune) bool {
	return ch == charUnderscore || ch == charPeriod || ch == charBackslash ||
		unicode.IsLetter(ch) || unicode.IsDigit(ch)
}

// Lexer splits formula or reference text into references and everything
// else. unlike an evaluating lexer it never rejects operators it does not
// know; text it does not recognize is kept as is.
type Lexer struct {
	input  string
	runes  []rune // UTF-8 aware representation
	pos    int
	tokens []Token
}

// NewLexer creates a lexer for formula text, with or without a leading "="
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: input,
		runes: []rune(input),
	}
}

// Tokenize scans the entire input. adjacent text is coalesced into one
// token. the only error is an unclosed string literal.
func (l *Lexer) Tokenize() ([]Token, error) {
	textStart := -1
	flush := func() {
		if textStart >= 0 {
			l.tokens = append(l.tokens, Token{Type: TokenText, Value: l.substring(textStart, l.pos), Pos: textStart})
			textStart = -1
		}
	}

	for l.pos < len(l.runes) {
		ch := l.current()
		startPos := l.pos

		if ch == charQuote {
			tok, err := l.scanString()
			if err != nil {
				return nil, err
			}
			flush()
			l.tokens = append(l.tokens, tok)
			l.pos = startPos + len([]rune(tok.Value))
			continue
		}

		if l.startsWord(ch) {
			if ref, end, ok := l.scanReference(startPos); ok {
				flush()
				l.tokens = append(l.tokens, Token{Type: TokenReference, Value: l.substring(startPos, end), Pos: startPos, Ref: ref})
				l.pos = end
				continue
			}
			if textStart < 0 {
				textStart = startPos
			}
			l.skipWord()
			continue
		}

		if textStart < 0 {
			textStart = startPos
		}
		l.pos++
	}
	flush()
	return l.tokens, nil
}

// startsWord reports whether a reference or name may begin at the cursor
func (l *Lexer) startsWord(ch rune) bool {
	if l.peek(-1) == charHash || isNameChar(l.peek(-1)) {
		return false
	}
	return ch == charApostrophe || ch == charDollar || isNameChar(ch)
}

// skipWord consumes a run of name characters so a reference is never found
// in the middle of a name
func (l *Lexer) skipWord() {
	if l.current() == charApostrophe || l.current() == charDollar {
		l.pos++
		return
	}
	for l.pos < len(l.runes) && (isNameChar(l.current()) || l.current() == charDollar) {
		l.pos++
	}
}

// helper methods for character navigation and classification

// substring returns a substring of the original input based on rune positions
func (l *Lexer) substring(start, end int) string {
	if start < 0 || end > len(l.runes) || start > end {
		return ""
	}
	return string(l.runes[start:end])
}

func (l *Lexer) current() rune {
	return l.at(l.pos)
}

func (l *Lexer) peek(offset int) rune {
	return l.at(l.pos + offset)
}

func (l *Lexer) at(pos int) rune {
	if pos >= len(l.runes) || pos < 0 {
		return charNull
	}
	return l.runes[pos]
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isAlpha(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// scanString scans a string literal with support for double-quote escapes
func (l *Lexer) scanString() (Token, error) {
	startPos := l.pos
	pos := l.pos + 1 // skip opening quote
	for pos < len(l.runes) {
		if l.runes[pos] == charQuote {
			if l.at(pos+1) == charQuote {
				pos += 2
				continue
			}
			return Token{Type: TokenString, Value: l.substring(startPos, pos+1), Pos: startPos}, nil
		}
		pos++
	}
	return Token{}, newAppErrorf(InvalidArgument, "unclosed string literal at %d", startPos)
}

// scanReference tries to read an optionally sheet-qualified reference
// starting at pos. it returns the end position on success.
func (l *Lexer) scanReference(pos int) (*Reference, int, bool) {
	ref := &Reference{}
	body := pos

	if sheet, end, ok := l.scanSheetPrefix(pos); ok {
		ref.Sheet = sheet
		ref.sheetText = l.substring(pos, end)
		body = end
	}

	end, ok := l.scanBody(body, ref)
	if !ok {
		return nil, 0, false
	}
	// a reference directly followed by a name character or a paren is
	// something else, e.g. LOG10( or A1B
	next := l.at(end)
	if isNameChar(next) || next == charLParen || next == charExclaim || next == charDollar {
		return nil, 0, false
	}
	return ref, end, true
}

// scanSheetPrefix reads 'Quoted Name'! or Name! at pos
func (l *Lexer) scanSheetPrefix(pos int) (string, int, bool) {
	if l.at(pos) == charApostrophe {
		var name []rune
		i := pos + 1
		for i < len(l.runes) {
			ch := l.runes[i]
			if ch == charApostrophe {
				if l.at(i+1) == charApostrophe {
					name = append(name, charApostrophe)
					i += 2
					continue
				}
				break
			}
			name = append(name, ch)
			i++
		}
		if i >= len(l.runes) || l.at(i+1) != charExclaim || len(name) == 0 {
			return "", 0, false
		}
		return string(name), i + 2, true
	}

	i := pos
	for i < len(l.runes) && isNameChar(l.runes[i]) {
		i++
	}
	if i == pos || l.at(i) != charExclaim {
		return "", 0, false
	}
	return l.substring(pos, i), i + 1, true
}

// scanPart reads [$]letters[$]digits, [$]letters or [$]digits
func (l *Lexer) scanPart(pos int) (refPart, int, bool) {
	var part refPart
	i := pos

	colStart := i
	if l.at(i) == charDollar {
		i++
	}
	lettersStart := i
	for isAlpha(l.at(i)) {
		i++
	}
	if i > lettersStart {
		if i-lettersStart > 3 {
			return refPart{}, 0, false
		}
		part.colAbs = l.at(colStart) == charDollar
		part.col = ColumnNumber(l.substring(lettersStart, i))
	} else {
		i = colStart
	}

	rowStart := i
	if l.at(i) == charDollar {
		i++
	}
	digitsStart := i
	for isDigit(l.at(i)) {
		i++
	}
	if i > digitsStart {
		if l.at(digitsStart) == '0' {
			return refPart{}, 0, false
		}
		n, err := strconv.ParseUint(l.substring(digitsStart, i), 10, 32)
		if err != nil {
			return refPart{}, 0, false
		}
		part.rowAbs = l.at(rowStart) == charDollar
		part.row = uint32(n)
	} else {
		i = rowStart
	}

	if part.row == 0 && part.col == 0 {
		return refPart{}, 0, false
	}
	return part, i, true
}

// scanBody reads the reference after any sheet prefix and sets its kind
func (l *Lexer) scanBody(pos int, ref *Reference) (int, bool) {
	first, end, ok := l.scanPart(pos)
	if !ok {
		return 0, false
	}

	if l.at(end) != charColon {
		if first.row == 0 || first.col == 0 {
			return 0, false
		}
		ref.Kind, ref.first, ref.last = RefCell, first, first
		return end, true
	}

	last, end2, ok := l.scanPart(end + 1)
	if !ok {
		if first.row == 0 || first.col == 0 {
			return 0, false
		}
		ref.Kind, ref.first, ref.last = RefCell, first, first
		return end, true
	}

	switch {
	case first.row != 0 && first.col != 0 && last.row != 0 && last.col != 0:
		ref.Kind = RefArea
		if first.row > last.row {
			first.row, last.row = last.row, first.row
			first.rowAbs, last.rowAbs = last.rowAbs, first.rowAbs
		}
		if first.col > last.col {
			first.col, last.col = last.col, first.col
			first.colAbs, last.colAbs = last.colAbs, first.colAbs
		}
	case first.col == 0 && last.col == 0:
		ref.Kind = RefRows
		if first.row > last.row {
			first, last = last, first
		}
	case first.row == 0 && last.row == 0:
		ref.Kind = RefColumns
		if first.col > last.col {
			first, last = last, first
		}
	default:
		// A1:B is a cell followed by something else
		if first.row == 0 || first.col == 0 {
			return 0, false
		}
		ref.Kind, ref.first, ref.last = RefCell, first, first
		return end, true
	}
	ref.first, ref.last = first, last
	return end2, true
}
