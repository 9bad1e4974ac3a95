package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Lexer scans J-- source text into tokens.
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char's byte offset)
	readPosition int  // current reading position in input (byte offset after current char)
	ch           rune // current char under examination (0 at EOF)
	width        int  // byte width of ch
	line         int  // current 1-based line number
	column       int  // current 1-based column number (position of l.position on l.line)
}

// State captures the lexer position so the parser can backtrack.
type State struct {
	position, readPosition, width, line, column int
	ch                                          rune
}

// NewLexer creates a new Lexer.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

// Save returns the current scanning state.
func (l *Lexer) Save() State {
	return State{l.position, l.readPosition, l.width, l.line, l.column, l.ch}
}

// Restore rewinds the lexer to a state returned by Save.
func (l *Lexer) Restore(s State) {
	l.position, l.readPosition, l.width, l.line, l.column, l.ch = s.position, s.readPosition, s.width, s.line, s.column, s.ch
}

// readChar gives us the next character and advances our position in the input string.
// It also updates the line and column count.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.width = 0
	} else {
		l.ch, l.width = utf8.DecodeRuneInString(l.input[l.readPosition:])
	}
	l.position = l.readPosition
	l.readPosition += l.width
	l.column++
}

// peekChar looks ahead in the input without consuming the character.
func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

// skipWhitespace consumes whitespace and comments. It returns false when an
// unterminated block comment runs into EOF.
func (l *Lexer) skipWhitespace() bool {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			l.readChar()
			l.readChar()
			for !(l.ch == '*' && l.peekChar() == '/') {
				if l.ch == 0 {
					return false
				}
				l.readChar()
			}
			l.readChar()
			l.readChar()
		default:
			return true
		}
	}
}

// NextToken scans the input and returns the next token.
func (l *Lexer) NextToken() Token {
	ok := l.skipWhitespace()

	startLine := l.line
	startCol := l.column
	startPos := l.position
	tok := Token{Line: startLine, Column: startCol, StartPos: startPos}

	if !ok {
		tok.Type = ILLEGAL
		tok.Literal = "unterminated comment"
		tok.EndPos = l.position
		return tok
	}

	switch {
	case l.ch == 0:
		tok.Type = EOF
	case isLetter(l.ch):
		literal := l.readIdentifier()
		tok.Type = LookupIdent(literal)
		tok.Literal = literal
	case isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())):
		literal, isDouble := l.readNumber()
		tok.Literal = literal
		tok.Type = INT_LITERAL
		if isDouble {
			tok.Type = DOUBLE_LITERAL
		}
	case l.ch == '"':
		literal, ok := l.readQuoted('"')
		tok.Type, tok.Literal = STRING_LITERAL, literal
		if !ok {
			tok.Type, tok.Literal = ILLEGAL, "invalid string literal"
		}
	case l.ch == '\'':
		literal, ok := l.readQuoted('\'')
		tok.Type, tok.Literal = CHAR_LITERAL, literal
		if !ok || utf8.RuneCountInString(literal) != 1 {
			tok.Type, tok.Literal = ILLEGAL, "invalid character literal"
		}
	default:
		rest := l.input[l.position:]
		for _, op := range operators {
			if strings.HasPrefix(rest, string(op)) {
				for range string(op) {
					l.readChar()
				}
				tok.Type = op
				tok.Literal = string(op)
				tok.EndPos = l.position
				return tok
			}
		}
		tok.Type = ILLEGAL
		tok.Literal = string(l.ch)
		l.readChar()
	}
	tok.EndPos = l.position
	return tok
}

// readIdentifier reads an identifier and returns it in NFC form, so that
// canonically equivalent spellings name the same binding.
func (l *Lexer) readIdentifier() string {
	startPos := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return norm.NFC.String(l.input[startPos:l.position])
}

// readNumber reads an int or double literal: digits, optional fraction,
// optional exponent, optional d/D suffix.
func (l *Lexer) readNumber() (string, bool) {
	startPos := l.position
	isDouble := false
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) || l.ch == '.' && startPos != l.position {
		isDouble = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		save := l.Save()
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		if isDigit(l.ch) {
			isDouble = true
			for isDigit(l.ch) {
				l.readChar()
			}
		} else {
			l.Restore(save)
		}
	}
	literal := l.input[startPos:l.position]
	if l.ch == 'd' || l.ch == 'D' {
		isDouble = true
		l.readChar()
	}
	return literal, isDouble
}

// readQuoted reads a string or char literal delimited by quote, decoding
// escapes. The lexer ends positioned after the closing quote.
func (l *Lexer) readQuoted(quote rune) (string, bool) {
	var sb strings.Builder
	l.readChar() // opening quote
	for l.ch != quote {
		if l.ch == 0 || l.ch == '\n' {
			return "", false
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case 'b':
				sb.WriteRune('\b')
			case 'f':
				sb.WriteRune('\f')
			case '0':
				sb.WriteRune(0)
			case '\\', '\'', '"':
				sb.WriteRune(l.ch)
			default:
				return "", false
			}
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar() // closing quote
	return sb.String(), true
}

// isLetter accepts Unicode letters and '_'. '$' is deliberately excluded:
// the loop desugarer uses it to build names no source program can spell.
func isLetter(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}
