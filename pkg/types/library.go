package types

import (
	"fmt"
	"strings"
)

// libraryClass describes one runtime library type. Members are written as
// Java-like declarations ("public static int max(int,int)"); constructors
// use the name <init> and fields have no parameter list.
type libraryClass struct {
	name       string
	super      string
	interfaces []string
	mods       Modifiers
	members    []string
}

var printOverloads = []string{
	"public void println()",
	"public void println(java.lang.String)",
	"public void println(int)",
	"public void println(double)",
	"public void println(char)",
	"public void println(boolean)",
	"public void println(java.lang.Object)",
	"public void print(java.lang.String)",
	"public void print(int)",
	"public void print(double)",
	"public void print(char)",
	"public void print(boolean)",
	"public void print(java.lang.Object)",
}

var exceptionCtors = []string{
	"public <init>()",
	"public <init>(java.lang.String)",
}

var library = []libraryClass{
	{name: "java.lang.Object", mods: Public, members: []string{
		"public <init>()",
		"public java.lang.String toString()",
		"public boolean equals(java.lang.Object)",
		"public int hashCode()",
	}},
	{name: "java.lang.String", super: "java.lang.Object", mods: Public | Final, members: []string{
		"public int length()",
		"public char charAt(int)",
		"public java.lang.String concat(java.lang.String)",
		"public boolean equals(java.lang.Object)",
		"public boolean isEmpty()",
		"public java.lang.String substring(int)",
		"public java.lang.String substring(int,int)",
		"public int indexOf(java.lang.String)",
		"public java.lang.String toString()",
		"public int hashCode()",
	}},
	{name: "java.lang.StringBuilder", super: "java.lang.Object", mods: Public | Final, members: []string{
		"public <init>()",
		"public <init>(java.lang.String)",
		"public java.lang.StringBuilder append(java.lang.String)",
		"public java.lang.StringBuilder append(int)",
		"public java.lang.StringBuilder append(double)",
		"public java.lang.StringBuilder append(char)",
		"public java.lang.StringBuilder append(boolean)",
		"public java.lang.StringBuilder append(java.lang.Object)",
		"public int length()",
		"public java.lang.String toString()",
	}},
	{name: "java.lang.Throwable", super: "java.lang.Object", mods: Public, members: append([]string{
		"public java.lang.String getMessage()",
		"public java.lang.String toString()",
	}, exceptionCtors...)},
	{name: "java.lang.Exception", super: "java.lang.Throwable", mods: Public, members: exceptionCtors},
	{name: "java.lang.Error", super: "java.lang.Throwable", mods: Public, members: exceptionCtors},
	{name: "java.lang.RuntimeException", super: "java.lang.Exception", mods: Public, members: exceptionCtors},
	{name: "java.lang.NullPointerException", super: "java.lang.RuntimeException", mods: Public, members: exceptionCtors},
	{name: "java.lang.ArithmeticException", super: "java.lang.RuntimeException", mods: Public, members: exceptionCtors},
	{name: "java.lang.IllegalArgumentException", super: "java.lang.RuntimeException", mods: Public, members: exceptionCtors},
	{name: "java.lang.IllegalStateException", super: "java.lang.RuntimeException", mods: Public, members: exceptionCtors},
	{name: "java.lang.ArrayIndexOutOfBoundsException", super: "java.lang.RuntimeException", mods: Public, members: exceptionCtors},
	{name: "java.lang.NegativeArraySizeException", super: "java.lang.RuntimeException", mods: Public, members: exceptionCtors},
	{name: "java.lang.ClassCastException", super: "java.lang.RuntimeException", mods: Public, members: exceptionCtors},
	{name: "java.lang.Iterable", super: "java.lang.Object", mods: Public | Interface | Abstract, members: []string{
		"public abstract java.util.Iterator iterator()",
	}},
	{name: "java.util.Iterator", super: "java.lang.Object", mods: Public | Interface | Abstract, members: []string{
		"public abstract boolean hasNext()",
		"public abstract java.lang.Object next()",
	}},
	{name: "java.util.ArrayList", super: "java.lang.Object", interfaces: []string{"java.lang.Iterable"}, mods: Public, members: []string{
		"public <init>()",
		"public boolean add(java.lang.Object)",
		"public java.lang.Object get(int)",
		"public java.lang.Object set(int,java.lang.Object)",
		"public int size()",
		"public boolean isEmpty()",
		"public java.util.Iterator iterator()",
	}},
	{name: "java.io.PrintStream", super: "java.lang.Object", mods: Public, members: printOverloads},
	{name: "java.lang.System", super: "java.lang.Object", mods: Public | Final, members: []string{
		"public static final java.io.PrintStream out",
	}},
	{name: "java.lang.Math", super: "java.lang.Object", mods: Public | Final, members: []string{
		"public static final double PI",
		"public static int max(int,int)",
		"public static double max(double,double)",
		"public static int min(int,int)",
		"public static double min(double,double)",
		"public static int abs(int)",
		"public static double abs(double)",
		"public static double sqrt(double)",
	}},
}

func (r *Registry) loadLibrary() {
	for _, lc := range library {
		ct, _ := r.Declare(lc.name, lc.mods)
		ct.Library = true
	}
	for _, lc := range library {
		ct := r.Lookup(lc.name)
		if lc.super != "" {
			ct.Super = r.Lookup(lc.super)
		}
		for _, name := range lc.interfaces {
			ct.Interfaces = append(ct.Interfaces, r.Lookup(name))
		}
		for _, decl := range lc.members {
			if err := r.defineLibraryMember(ct, decl); err != nil {
				panic(fmt.Sprintf("types: bad library member %q in %s: %v", decl, lc.name, err))
			}
		}
	}
	r.Object = r.Lookup("java.lang.Object")
	r.String = r.Lookup("java.lang.String")
	r.StringBuilder = r.Lookup("java.lang.StringBuilder")
	r.Throwable = r.Lookup("java.lang.Throwable")
	r.RuntimeException = r.Lookup("java.lang.RuntimeException")
	r.Error = r.Lookup("java.lang.Error")
	r.Iterable = r.Lookup("java.lang.Iterable")
	r.Iterator = r.Lookup("java.util.Iterator")
}

func (r *Registry) defineLibraryMember(ct *ClassType, decl string) error {
	var params []Type
	head := decl
	if open := strings.IndexByte(decl, '('); open >= 0 {
		head = decl[:open]
		inner := strings.TrimSuffix(decl[open+1:], ")")
		if inner != "" {
			for _, p := range strings.Split(inner, ",") {
				t, err := r.ParseTypeName(strings.TrimSpace(p))
				if err != nil {
					return err
				}
				params = append(params, t)
			}
		}
	}

	words := strings.Fields(head)
	var mods Modifiers
	for len(words) > 0 {
		m, ok := ParseModifier(words[0])
		if !ok {
			break
		}
		mods |= m
		words = words[1:]
	}

	if len(words) == 1 && words[0] == "<init>" {
		ct.Constructors = append(ct.Constructors, &Method{Name: "<init>", Params: params, Return: Void, Modifiers: mods, Owner: ct})
		return nil
	}
	if len(words) != 2 {
		return fmt.Errorf("expected type and name")
	}
	t, err := r.ParseTypeName(words[0])
	if err != nil {
		return err
	}
	if !strings.Contains(decl, "(") {
		ct.Fields = append(ct.Fields, &Field{Name: words[1], Type: t, Modifiers: mods, Owner: ct})
		return nil
	}
	ct.Methods = append(ct.Methods, &Method{Name: words[1], Params: params, Return: t, Modifiers: mods, Owner: ct})
	return nil
}
