package vm

import (
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf16"
)

// NativeFunc implements a library method. args holds one Value per
// parameter, preceded by the receiver for instance methods.
type NativeFunc func(vm *VM, args []Value) (Value, error)

const arrayListItr = "java/util/ArrayList$Itr"

type arrayList struct {
	elems []Value
}

type listIterator struct {
	list *arrayList
	next int
}

// natives maps "class.name+descriptor" to its implementation.
var natives = map[string]NativeFunc{}

func init() {
	def := func(class string, methods map[string]NativeFunc) {
		for key, fn := range methods {
			natives[class+"."+key] = fn
		}
	}

	def("java/lang/Object", map[string]NativeFunc{
		"<init>()V": func(vm *VM, args []Value) (Value, error) { return Value{}, nil },
		"toString()Ljava/lang/String;": func(vm *VM, args []Value) (Value, error) {
			o := args[0].ref
			return vm.newString(fmt.Sprintf("%s@%x", vm.typeName(o), vm.identityHash(o))), nil
		},
		"equals(Ljava/lang/Object;)Z": func(vm *VM, args []Value) (Value, error) {
			return Bool(args[0].ref == args[1].ref), nil
		},
		"hashCode()I": func(vm *VM, args []Value) (Value, error) {
			return Int(vm.identityHash(args[0].ref)), nil
		},
	})

	def("java/lang/String", map[string]NativeFunc{
		"length()I": func(vm *VM, args []Value) (Value, error) {
			return Int(int32(len(utf16.Encode([]rune(str(args[0])))))), nil
		},
		"charAt(I)C": func(vm *VM, args []Value) (Value, error) {
			units := utf16.Encode([]rune(str(args[0])))
			i := args[1].i
			if i < 0 || int(i) >= len(units) {
				return Value{}, vm.throwNew("java/lang/ArrayIndexOutOfBoundsException",
					"Index %d out of bounds for length %d", i, len(units))
			}
			return Int(int32(units[i])), nil
		},
		"concat(Ljava/lang/String;)Ljava/lang/String;": func(vm *VM, args []Value) (Value, error) {
			if args[1].IsNull() {
				return Value{}, vm.nullPointer("concatenate a null string")
			}
			return vm.newString(str(args[0]) + str(args[1])), nil
		},
		"equals(Ljava/lang/Object;)Z": func(vm *VM, args []Value) (Value, error) {
			other, ok := args[1].ref.(*String)
			return Bool(ok && other.Value == str(args[0])), nil
		},
		"isEmpty()Z": func(vm *VM, args []Value) (Value, error) {
			return Bool(str(args[0]) == ""), nil
		},
		"substring(I)Ljava/lang/String;": func(vm *VM, args []Value) (Value, error) {
			units := utf16.Encode([]rune(str(args[0])))
			return vm.substring(units, args[1].i, int32(len(units)))
		},
		"substring(II)Ljava/lang/String;": func(vm *VM, args []Value) (Value, error) {
			return vm.substring(utf16.Encode([]rune(str(args[0]))), args[1].i, args[2].i)
		},
		"indexOf(Ljava/lang/String;)I": func(vm *VM, args []Value) (Value, error) {
			s, sub := str(args[0]), str(args[1])
			i := strings.Index(s, sub)
			if i < 0 {
				return Int(-1), nil
			}
			return Int(int32(len(utf16.Encode([]rune(s[:i]))))), nil
		},
		"toString()Ljava/lang/String;": func(vm *VM, args []Value) (Value, error) {
			return args[0], nil
		},
		"hashCode()I": func(vm *VM, args []Value) (Value, error) {
			var h int32
			for _, u := range utf16.Encode([]rune(str(args[0]))) {
				h = 31*h + int32(u)
			}
			return Int(h), nil
		},
	})

	appendTo := func(format func(vm *VM, v Value) (string, error)) NativeFunc {
		return func(vm *VM, args []Value) (Value, error) {
			s, err := format(vm, args[1])
			if err != nil {
				return Value{}, err
			}
			args[0].ref.(*Instance).Native.(*strings.Builder).WriteString(s)
			return args[0], nil
		}
	}
	def("java/lang/StringBuilder", map[string]NativeFunc{
		"<init>()V": func(vm *VM, args []Value) (Value, error) {
			args[0].ref.(*Instance).Native = &strings.Builder{}
			return Value{}, nil
		},
		"<init>(Ljava/lang/String;)V": func(vm *VM, args []Value) (Value, error) {
			sb := &strings.Builder{}
			sb.WriteString(vm.valueOf(args[1]))
			args[0].ref.(*Instance).Native = sb
			return Value{}, nil
		},
		"append(Ljava/lang/String;)Ljava/lang/StringBuilder;": appendTo(func(vm *VM, v Value) (string, error) { return vm.valueOf(v), nil }),
		"append(I)Ljava/lang/StringBuilder;":                  appendTo(formatInt),
		"append(D)Ljava/lang/StringBuilder;":                  appendTo(formatDouble),
		"append(C)Ljava/lang/StringBuilder;":                  appendTo(formatChar),
		"append(Z)Ljava/lang/StringBuilder;":                  appendTo(formatBool),
		"append(Ljava/lang/Object;)Ljava/lang/StringBuilder;": appendTo((*VM).stringOf),
		"length()I": func(vm *VM, args []Value) (Value, error) {
			s := args[0].ref.(*Instance).Native.(*strings.Builder).String()
			return Int(int32(len(utf16.Encode([]rune(s))))), nil
		},
		"toString()Ljava/lang/String;": func(vm *VM, args []Value) (Value, error) {
			return vm.newString(args[0].ref.(*Instance).Native.(*strings.Builder).String()), nil
		},
	})

	def(throwableClass, map[string]NativeFunc{
		"<init>()V": func(vm *VM, args []Value) (Value, error) { return Value{}, nil },
		"<init>(Ljava/lang/String;)V": func(vm *VM, args []Value) (Value, error) {
			args[0].ref.(*Instance).Fields[messageKey] = args[1]
			return Value{}, nil
		},
		"getMessage()Ljava/lang/String;": func(vm *VM, args []Value) (Value, error) {
			return args[0].ref.(*Instance).Fields[messageKey], nil
		},
		"toString()Ljava/lang/String;": func(vm *VM, args []Value) (Value, error) {
			return vm.newString((&Throw{Exception: args[0].ref.(*Instance)}).Error()), nil
		},
	})

	list := func(v Value) *arrayList { return v.ref.(*Instance).Native.(*arrayList) }
	def("java/util/ArrayList", map[string]NativeFunc{
		"<init>()V": func(vm *VM, args []Value) (Value, error) {
			args[0].ref.(*Instance).Native = &arrayList{}
			return Value{}, nil
		},
		"add(Ljava/lang/Object;)Z": func(vm *VM, args []Value) (Value, error) {
			l := list(args[0])
			l.elems = append(l.elems, args[1])
			return Bool(true), nil
		},
		"get(I)Ljava/lang/Object;": func(vm *VM, args []Value) (Value, error) {
			l := list(args[0])
			if err := vm.checkIndex(args[1].i, len(l.elems)); err != nil {
				return Value{}, err
			}
			return l.elems[args[1].i], nil
		},
		"set(ILjava/lang/Object;)Ljava/lang/Object;": func(vm *VM, args []Value) (Value, error) {
			l := list(args[0])
			if err := vm.checkIndex(args[1].i, len(l.elems)); err != nil {
				return Value{}, err
			}
			old := l.elems[args[1].i]
			l.elems[args[1].i] = args[2]
			return old, nil
		},
		"size()I": func(vm *VM, args []Value) (Value, error) {
			return Int(int32(len(list(args[0]).elems))), nil
		},
		"isEmpty()Z": func(vm *VM, args []Value) (Value, error) {
			return Bool(len(list(args[0]).elems) == 0), nil
		},
		"iterator()Ljava/util/Iterator;": func(vm *VM, args []Value) (Value, error) {
			it := vm.newInstance(vm.classes[arrayListItr])
			it.Native = &listIterator{list: list(args[0])}
			return Ref(it), nil
		},
	})

	iter := func(v Value) *listIterator { return v.ref.(*Instance).Native.(*listIterator) }
	def(arrayListItr, map[string]NativeFunc{
		"hasNext()Z": func(vm *VM, args []Value) (Value, error) {
			it := iter(args[0])
			return Bool(it.next < len(it.list.elems)), nil
		},
		"next()Ljava/lang/Object;": func(vm *VM, args []Value) (Value, error) {
			it := iter(args[0])
			if it.next >= len(it.list.elems) {
				return Value{}, vm.throwNew("java/lang/IllegalStateException", "iteration has no more elements")
			}
			it.next++
			return it.list.elems[it.next-1], nil
		},
	})

	printer := func(newline bool, format func(vm *VM, v Value) (string, error)) NativeFunc {
		return func(vm *VM, args []Value) (Value, error) {
			s := ""
			if len(args) > 1 {
				var err error
				if s, err = format(vm, args[1]); err != nil {
					return Value{}, err
				}
			}
			if newline {
				s += "\n"
			}
			_, err := io.WriteString(vm.out, s)
			return Value{}, err
		}
	}
	printStream := map[string]NativeFunc{"println()V": printer(true, nil)}
	for _, p := range []struct {
		desc   string
		format func(vm *VM, v Value) (string, error)
	}{
		{"Ljava/lang/String;", func(vm *VM, v Value) (string, error) { return vm.valueOf(v), nil }},
		{"I", formatInt},
		{"D", formatDouble},
		{"C", formatChar},
		{"Z", formatBool},
		{"Ljava/lang/Object;", (*VM).stringOf},
	} {
		printStream["println("+p.desc+")V"] = printer(true, p.format)
		printStream["print("+p.desc+")V"] = printer(false, p.format)
	}
	def("java/io/PrintStream", printStream)

	def("java/lang/Math", map[string]NativeFunc{
		"max(II)I": func(vm *VM, args []Value) (Value, error) { return Int(max(args[0].i, args[1].i)), nil },
		"min(II)I": func(vm *VM, args []Value) (Value, error) { return Int(min(args[0].i, args[1].i)), nil },
		"max(DD)D": func(vm *VM, args []Value) (Value, error) { return Double(math.Max(args[0].d, args[1].d)), nil },
		"min(DD)D": func(vm *VM, args []Value) (Value, error) { return Double(math.Min(args[0].d, args[1].d)), nil },
		"abs(I)I": func(vm *VM, args []Value) (Value, error) {
			if args[0].i < 0 {
				return Int(-args[0].i), nil
			}
			return args[0], nil
		},
		"abs(D)D":  func(vm *VM, args []Value) (Value, error) { return Double(math.Abs(args[0].d)), nil },
		"sqrt(D)D": func(vm *VM, args []Value) (Value, error) { return Double(math.Sqrt(args[0].d)), nil },
	})
}

func str(v Value) string {
	if s, ok := v.ref.(*String); ok {
		return s.Value
	}
	return "null"
}

func formatInt(vm *VM, v Value) (string, error)    { return fmt.Sprint(v.i), nil }
func formatDouble(vm *VM, v Value) (string, error) { return FormatDouble(v.d), nil }
func formatChar(vm *VM, v Value) (string, error)   { return string(rune(v.i)), nil }

func formatBool(vm *VM, v Value) (string, error) {
	if v.i != 0 {
		return "true", nil
	}
	return "false", nil
}

// valueOf renders a String reference, "null" for null.
func (vm *VM) valueOf(v Value) string { return str(v) }

// stringOf converts any reference to a string the way String.valueOf
// does, calling toString on objects.
func (vm *VM) stringOf(v Value) (string, error) {
	switch o := v.ref.(type) {
	case nil:
		return "null", nil
	case *String:
		return o.Value, nil
	}
	res, err := vm.CallMethod(v.ref, "toString", "()Ljava/lang/String;")
	if err != nil {
		return "", err
	}
	return str(res), nil
}

func (vm *VM) identityHash(o Object) int32 {
	if inst, ok := o.(*Instance); ok {
		return inst.hash
	}
	if h, ok := vm.hashes[o]; ok {
		return h
	}
	vm.nextHash++
	vm.hashes[o] = vm.nextHash
	return vm.nextHash
}

func (vm *VM) checkIndex(i int32, n int) error {
	if i < 0 || int(i) >= n {
		return vm.throwNew("java/lang/ArrayIndexOutOfBoundsException", "Index %d out of bounds for length %d", i, n)
	}
	return nil
}

func (vm *VM) substring(units []uint16, begin, end int32) (Value, error) {
	if begin < 0 || end > int32(len(units)) || begin > end {
		return Value{}, vm.throwNew("java/lang/ArrayIndexOutOfBoundsException",
			"begin %d, end %d, length %d", begin, end, len(units))
	}
	return vm.newString(string(utf16.Decode(units[begin:end]))), nil
}

// newString allocates a string that is not interned, as computed strings
// are distinct objects.
func (vm *VM) newString(s string) Value { return Ref(&String{Value: s}) }
