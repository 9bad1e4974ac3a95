package lexer

import (
	"testing"
)

func TestNextToken(t *testing.T) {
	input := `package pass;

public class Sum {
    public static int sum(int[] a) {
        int s = 0; // running total
        for (int i = 0; i < a.length; i++) s += a[i];
        return s >>> 1;
    }
    /* block
       comment */
    double d = 3.14; char c = '\n'; String str = "a\"b";
    boolean b = x != y && !z || w >= 2e3;
    int m = k >>>= 2;
}`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
		expectedLine    int
	}{
		{PACKAGE, "package", 1},
		{IDENT, "pass", 1},
		{SEMICOLON, ";", 1},
		{PUBLIC, "public", 3},
		{CLASS, "class", 3},
		{IDENT, "Sum", 3},
		{LBRACE, "{", 3},
		{PUBLIC, "public", 4},
		{STATIC, "static", 4},
		{INT, "int", 4},
		{IDENT, "sum", 4},
		{LPAREN, "(", 4},
		{INT, "int", 4},
		{LBRACKET, "[", 4},
		{RBRACKET, "]", 4},
		{IDENT, "a", 4},
		{RPAREN, ")", 4},
		{LBRACE, "{", 4},
		{INT, "int", 5},
		{IDENT, "s", 5},
		{ASSIGN, "=", 5},
		{INT_LITERAL, "0", 5},
		{SEMICOLON, ";", 5},
		{FOR, "for", 6},
		{LPAREN, "(", 6},
		{INT, "int", 6},
		{IDENT, "i", 6},
		{ASSIGN, "=", 6},
		{INT_LITERAL, "0", 6},
		{SEMICOLON, ";", 6},
		{IDENT, "i", 6},
		{LT, "<", 6},
		{IDENT, "a", 6},
		{DOT, ".", 6},
		{IDENT, "length", 6},
		{SEMICOLON, ";", 6},
		{IDENT, "i", 6},
		{INC, "++", 6},
		{RPAREN, ")", 6},
		{IDENT, "s", 6},
		{PLUS_ASSIGN, "+=", 6},
		{IDENT, "a", 6},
		{LBRACKET, "[", 6},
		{IDENT, "i", 6},
		{RBRACKET, "]", 6},
		{SEMICOLON, ";", 6},
		{RETURN, "return", 7},
		{IDENT, "s", 7},
		{USHR, ">>>", 7},
		{INT_LITERAL, "1", 7},
		{SEMICOLON, ";", 7},
		{RBRACE, "}", 8},
		{DOUBLE, "double", 11},
		{IDENT, "d", 11},
		{ASSIGN, "=", 11},
		{DOUBLE_LITERAL, "3.14", 11},
		{SEMICOLON, ";", 11},
		{CHAR, "char", 11},
		{IDENT, "c", 11},
		{ASSIGN, "=", 11},
		{CHAR_LITERAL, "\n", 11},
		{SEMICOLON, ";", 11},
		{IDENT, "String", 11},
		{IDENT, "str", 11},
		{ASSIGN, "=", 11},
		{STRING_LITERAL, "a\"b", 11},
		{SEMICOLON, ";", 11},
		{BOOLEAN, "boolean", 12},
		{IDENT, "b", 12},
		{ASSIGN, "=", 12},
		{IDENT, "x", 12},
		{NOT_EQ, "!=", 12},
		{IDENT, "y", 12},
		{LOGICAL_AND, "&&", 12},
		{BANG, "!", 12},
		{IDENT, "z", 12},
		{LOGICAL_OR, "||", 12},
		{IDENT, "w", 12},
		{GE, ">=", 12},
		{DOUBLE_LITERAL, "2e3", 12},
		{SEMICOLON, ";", 12},
		{INT, "int", 13},
		{IDENT, "m", 13},
		{ASSIGN, "=", 13},
		{IDENT, "k", 13},
		{USHR_ASSIGN, ">>>=", 13},
		{INT_LITERAL, "2", 13},
		{SEMICOLON, ";", 13},
		{RBRACE, "}", 14},
		{EOF, "", 14},
	}

	l := NewLexer(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (literal: %q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
		if tok.Line != tt.expectedLine {
			t.Fatalf("tests[%d] - line wrong. expected=%d, got=%d (literal: %q)",
				i, tt.expectedLine, tok.Line, tok.Literal)
		}
	}
}

func TestDollarIsIllegalInIdentifiers(t *testing.T) {
	l := NewLexer("$i0")
	tok := l.NextToken()
	if tok.Type != ILLEGAL || tok.Literal != "$" {
		t.Fatalf("expected ILLEGAL '$', got %q %q", tok.Type, tok.Literal)
	}
}

func TestIdentifiersAreNormalized(t *testing.T) {
	// "é" written as e + combining acute accent must equal the precomposed form.
	l := NewLexer("caf\u00e9 cafe\u0301")
	a := l.NextToken()
	b := l.NextToken()
	if a.Type != IDENT || b.Type != IDENT {
		t.Fatalf("expected identifiers, got %q and %q", a.Type, b.Type)
	}
	if a.Literal != b.Literal {
		t.Errorf("identifiers not normalized: %q vs %q", a.Literal, b.Literal)
	}
}

func TestUnterminatedComment(t *testing.T) {
	l := NewLexer("int x; /* never closed")
	for i := 0; i < 3; i++ {
		l.NextToken()
	}
	tok := l.NextToken()
	if tok.Type != ILLEGAL {
		t.Fatalf("expected ILLEGAL for unterminated comment, got %q", tok.Type)
	}
}

func TestSaveRestore(t *testing.T) {
	l := NewLexer("a b c")
	l.NextToken()
	s := l.Save()
	if tok := l.NextToken(); tok.Literal != "b" {
		t.Fatalf("expected b, got %q", tok.Literal)
	}
	l.Restore(s)
	if tok := l.NextToken(); tok.Literal != "b" {
		t.Fatalf("expected b after restore, got %q", tok.Literal)
	}
}
