package vm

import (
	"fmt"
	"strings"
)

const throwableClass = "java/lang/Throwable"

// messageKey is the field holding a throwable's detail message.
var messageKey = fieldKey(throwableClass, "detailMessage")

// Throw is an exception in flight. It is returned as an error from
// execute until a frame's exception table catches it.
type Throw struct {
	Exception *Instance
	Line      int // line of the instruction that raised it
}

func (t *Throw) Error() string {
	name := dotted(t.Exception.Class.Name)
	if msg, ok := t.Exception.Fields[messageKey].ref.(*String); ok {
		return name + ": " + msg.Value
	}
	return name
}

// Message returns the detail message, or "" when there is none.
func (t *Throw) Message() string {
	if msg, ok := t.Exception.Fields[messageKey].ref.(*String); ok {
		return msg.Value
	}
	return ""
}

// findHandler returns the first exception-table row of m that covers pc
// and catches exc.
func (vm *VM) findHandler(m *Method, pc int, exc *Instance) *ExceptionHandler {
	for i := range m.Handlers {
		h := &m.Handlers[i]
		if pc < h.Start || pc >= h.End {
			continue
		}
		if h.CatchType == "" || vm.isSubclass(exc.Class, h.CatchType) {
			debugPrintf("// [VM] %s in %s.%s at %d handled at %d\n", exc.Class.Name, m.Class.Name, m.Name, pc, h.Handler)
			return h
		}
	}
	return nil
}

// throwNew creates an instance of the library exception class with a
// formatted detail message and returns it as a Throw.
func (vm *VM) throwNew(class, format string, args ...interface{}) error {
	c := vm.classes[class]
	if c == nil {
		return vm.fault(0, "%s: %s", dotted(class), fmt.Sprintf(format, args...))
	}
	exc := vm.newInstance(c)
	exc.Fields[messageKey] = Ref(vm.intern(fmt.Sprintf(format, args...)))
	return &Throw{Exception: exc}
}

func dotted(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}

// typeName renders the runtime type of o for messages.
func (vm *VM) typeName(o Object) string {
	switch x := o.(type) {
	case *Array:
		return x.Type
	case *String:
		return "java.lang.String"
	case *Instance:
		return dotted(x.Class.Name)
	}
	return "null"
}
