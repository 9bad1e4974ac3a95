package lexer

// TokenType represents the type of a token.
type TokenType string

// Token represents a lexical token.
type Token struct {
	Type     TokenType
	Literal  string // The actual text of the token (lexeme); decoded for strings and chars
	Line     int    // 1-based line number where the token starts
	Column   int    // 1-based column number (rune index) where the token starts
	StartPos int    // 0-based byte offset where the token starts
	EndPos   int    // 0-based byte offset after the token ends
}

// --- Token Types ---
const (
	// Special
	ILLEGAL TokenType = "ILLEGAL" // Unknown token/character
	EOF     TokenType = "EOF"     // End Of File

	// Identifiers + Literals
	IDENT          TokenType = "IDENT"
	INT_LITERAL    TokenType = "INT_LITERAL"
	DOUBLE_LITERAL TokenType = "DOUBLE_LITERAL"
	CHAR_LITERAL   TokenType = "CHAR_LITERAL"
	STRING_LITERAL TokenType = "STRING_LITERAL"

	// Operators
	ASSIGN      TokenType = "="
	PLUS        TokenType = "+"
	MINUS       TokenType = "-"
	STAR        TokenType = "*"
	SLASH       TokenType = "/"
	PERCENT     TokenType = "%"
	BANG        TokenType = "!"
	TILDE       TokenType = "~"
	AMP         TokenType = "&"
	PIPE        TokenType = "|"
	CARET       TokenType = "^"
	SHL         TokenType = "<<"
	SHR         TokenType = ">>"
	USHR        TokenType = ">>>"
	LT          TokenType = "<"
	GT          TokenType = ">"
	LE          TokenType = "<="
	GE          TokenType = ">="
	EQ          TokenType = "=="
	NOT_EQ      TokenType = "!="
	LOGICAL_AND TokenType = "&&"
	LOGICAL_OR  TokenType = "||"
	INC         TokenType = "++"
	DEC         TokenType = "--"
	QUESTION    TokenType = "?"
	COLON       TokenType = ":"

	// Compound Assignment
	PLUS_ASSIGN    TokenType = "+="
	MINUS_ASSIGN   TokenType = "-="
	STAR_ASSIGN    TokenType = "*="
	SLASH_ASSIGN   TokenType = "/="
	PERCENT_ASSIGN TokenType = "%="
	AMP_ASSIGN     TokenType = "&="
	PIPE_ASSIGN    TokenType = "|="
	CARET_ASSIGN   TokenType = "^="
	SHL_ASSIGN     TokenType = "<<="
	SHR_ASSIGN     TokenType = ">>="
	USHR_ASSIGN    TokenType = ">>>="

	// Delimiters
	COMMA     TokenType = ","
	SEMICOLON TokenType = ";"
	DOT       TokenType = "."
	LPAREN    TokenType = "("
	RPAREN    TokenType = ")"
	LBRACE    TokenType = "{"
	RBRACE    TokenType = "}"
	LBRACKET  TokenType = "["
	RBRACKET  TokenType = "]"

	// Keywords
	ABSTRACT   TokenType = "ABSTRACT"
	BOOLEAN    TokenType = "BOOLEAN"
	BREAK      TokenType = "BREAK"
	CATCH      TokenType = "CATCH"
	CHAR       TokenType = "CHAR"
	CLASS      TokenType = "CLASS"
	CONTINUE   TokenType = "CONTINUE"
	DOUBLE     TokenType = "DOUBLE"
	ELSE       TokenType = "ELSE"
	EXTENDS    TokenType = "EXTENDS"
	FALSE      TokenType = "FALSE"
	FINAL      TokenType = "FINAL"
	FINALLY    TokenType = "FINALLY"
	FOR        TokenType = "FOR"
	IF         TokenType = "IF"
	IMPLEMENTS TokenType = "IMPLEMENTS"
	IMPORT     TokenType = "IMPORT"
	INSTANCEOF TokenType = "INSTANCEOF"
	INT        TokenType = "INT"
	INTERFACE  TokenType = "INTERFACE"
	NEW        TokenType = "NEW"
	NULL       TokenType = "NULL"
	PACKAGE    TokenType = "PACKAGE"
	PRIVATE    TokenType = "PRIVATE"
	PROTECTED  TokenType = "PROTECTED"
	PUBLIC     TokenType = "PUBLIC"
	RETURN     TokenType = "RETURN"
	STATIC     TokenType = "STATIC"
	SUPER      TokenType = "SUPER"
	THIS       TokenType = "THIS"
	THROW      TokenType = "THROW"
	THROWS     TokenType = "THROWS"
	TRUE       TokenType = "TRUE"
	TRY        TokenType = "TRY"
	VOID       TokenType = "VOID"
	WHILE      TokenType = "WHILE"
)

var keywords = map[string]TokenType{
	"abstract":   ABSTRACT,
	"boolean":    BOOLEAN,
	"break":      BREAK,
	"catch":      CATCH,
	"char":       CHAR,
	"class":      CLASS,
	"continue":   CONTINUE,
	"double":     DOUBLE,
	"else":       ELSE,
	"extends":    EXTENDS,
	"false":      FALSE,
	"final":      FINAL,
	"finally":    FINALLY,
	"for":        FOR,
	"if":         IF,
	"implements": IMPLEMENTS,
	"import":     IMPORT,
	"instanceof": INSTANCEOF,
	"int":        INT,
	"interface":  INTERFACE,
	"new":        NEW,
	"null":       NULL,
	"package":    PACKAGE,
	"private":    PRIVATE,
	"protected":  PROTECTED,
	"public":     PUBLIC,
	"return":     RETURN,
	"static":     STATIC,
	"super":      SUPER,
	"this":       THIS,
	"throw":      THROW,
	"throws":     THROWS,
	"true":       TRUE,
	"try":        TRY,
	"void":       VOID,
	"while":      WHILE,
}

// LookupIdent checks the keywords table for an identifier.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// operators lists every punctuation token, longest spellings first, so that
// NextToken can take the longest match.
var operators = []TokenType{
	USHR_ASSIGN,
	USHR, SHL_ASSIGN, SHR_ASSIGN,
	SHL, SHR, LE, GE, EQ, NOT_EQ, LOGICAL_AND, LOGICAL_OR, INC, DEC,
	PLUS_ASSIGN, MINUS_ASSIGN, STAR_ASSIGN, SLASH_ASSIGN, PERCENT_ASSIGN,
	AMP_ASSIGN, PIPE_ASSIGN, CARET_ASSIGN,
	ASSIGN, PLUS, MINUS, STAR, SLASH, PERCENT, BANG, TILDE, AMP, PIPE, CARET,
	LT, GT, QUESTION, COLON, COMMA, SEMICOLON, DOT,
	LPAREN, RPAREN, LBRACE, RBRACE, LBRACKET, RBRACKET,
}
