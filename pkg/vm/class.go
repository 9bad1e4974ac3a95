package vm

import (
	"fmt"

	"jmm/pkg/types"
)

// link builds the runtime class table: library classes from reg backed by
// natives, then the program's classes. Supertypes are resolved, method
// tables built, static fields given default values and string constants
// interned.
func (vm *VM) link(prog *Program, reg *types.Registry) error {
	for _, ct := range reg.Classes() {
		if !ct.Library {
			continue
		}
		vm.classes[types.InternalName(ct)] = libraryClass(ct)
	}
	for _, c := range syntheticLibrary() {
		vm.classes[c.Name] = c
	}
	for _, c := range prog.Classes {
		if _, dup := vm.classes[c.Name]; dup {
			return fmt.Errorf("link: duplicate class %s", c.Name)
		}
		vm.classes[c.Name] = c
	}

	for _, c := range vm.classes {
		if c.Super != "" {
			if c.super = vm.classes[c.Super]; c.super == nil {
				return fmt.Errorf("link: %s extends unknown class %s", c.Name, c.Super)
			}
		}
		c.interfaces = c.interfaces[:0]
		for _, name := range c.Interfaces {
			iface := vm.classes[name]
			if iface == nil {
				return fmt.Errorf("link: %s implements unknown interface %s", c.Name, name)
			}
			c.interfaces = append(c.interfaces, iface)
		}
		c.methods = make(map[string]*Method, len(c.Methods))
		for _, m := range c.Methods {
			if m.Class == nil {
				m.Class = c
			}
			c.methods[m.Key()] = m
		}
		c.statics = make(map[string]Value)
		for _, f := range c.Fields {
			if f.Modifiers.Has(types.Static) {
				c.statics[f.Name] = zeroValue(f.Descriptor)
			}
		}
		for _, m := range c.Methods {
			for i := range m.Code {
				in := &m.Code[i]
				if s, ok := in.Const.ref.(*String); ok && in.Op == OpLdc {
					in.Const = Ref(vm.intern(s.Value))
				}
			}
		}
		if c.library {
			c.state = initialized
		}
	}

	if system := vm.classes["java/lang/System"]; system != nil {
		system.statics["out"] = Ref(vm.newInstance(vm.classes["java/io/PrintStream"]))
	}
	if math := vm.classes["java/lang/Math"]; math != nil {
		math.statics["PI"] = Double(3.141592653589793)
	}
	return nil
}

// libraryClass turns a registry library type into a runtime class whose
// methods are natives.
func libraryClass(ct *types.ClassType) *Class {
	c := &Class{
		Name:      types.InternalName(ct),
		Modifiers: ct.Modifiers,
		library:   true,
	}
	if ct.Super != nil {
		c.Super = types.InternalName(ct.Super)
	}
	for _, iface := range ct.Interfaces {
		c.Interfaces = append(c.Interfaces, types.InternalName(iface))
	}
	for _, f := range ct.Fields {
		c.Fields = append(c.Fields, &Field{Modifiers: f.Modifiers, Name: f.Name, Descriptor: f.Type.Descriptor()})
	}
	if c.Name == throwableClass {
		c.Fields = append(c.Fields, &Field{Modifiers: types.Private, Name: "detailMessage", Descriptor: "Ljava/lang/String;"})
	}
	throwable := types.IsThrowable(ct)
	add := func(m *types.Method) {
		desc := m.Descriptor()
		native := natives[c.Name+"."+m.Name+desc]
		if native == nil && throwable && m.IsConstructor() {
			native = natives[throwableClass+"."+m.Name+desc]
		}
		c.Methods = append(c.Methods, &Method{
			Class:      c,
			Modifiers:  m.Modifiers,
			Name:       m.Name,
			Descriptor: desc,
			native:     native,
			argWords:   paramWords(m.Params),
			retWords:   types.Width(m.Return),
		})
	}
	for _, m := range ct.Constructors {
		add(m)
	}
	for _, m := range ct.Methods {
		add(m)
	}
	return c
}

func paramWords(params []types.Type) int {
	n := 0
	for _, p := range params {
		n += types.Width(p)
	}
	return n
}

// syntheticLibrary returns runtime-only classes that have no compile-time
// counterpart.
func syntheticLibrary() []*Class {
	itr := &Class{
		Name:       arrayListItr,
		Super:      "java/lang/Object",
		Interfaces: []string{"java/util/Iterator"},
		Modifiers:  types.Final,
		Synthetic:  true,
		library:    true,
	}
	for _, key := range []struct{ name, desc string }{{"hasNext", "()Z"}, {"next", "()Ljava/lang/Object;"}} {
		_, ret, _ := methodWords(key.desc)
		itr.Methods = append(itr.Methods, &Method{
			Class:      itr,
			Modifiers:  types.Public,
			Name:       key.name,
			Descriptor: key.desc,
			native:     natives[arrayListItr+"."+key.name+key.desc],
			retWords:   ret,
		})
	}
	return []*Class{itr}
}

// lookupMethod finds name+desc in c or its superclasses.
func (c *Class) lookupMethod(name, desc string) *Method {
	key := name + desc
	for k := c; k != nil; k = k.super {
		if m := k.methods[key]; m != nil {
			return m
		}
	}
	return nil
}

func (vm *VM) loadClass(name string) (*Class, error) {
	c := vm.classes[name]
	if c == nil {
		return nil, vm.fault(0, "NoClassDefFoundError: %s", name)
	}
	return c, nil
}

// staticOwner returns the initialized class that declares the static
// field referenced by in.
func (vm *VM) staticOwner(in *Instruction) (*Class, error) {
	c, err := vm.loadClass(in.Owner)
	if err != nil {
		return nil, err
	}
	for k := c; k != nil; k = k.super {
		if _, ok := k.statics[in.Name]; ok {
			return k, vm.initialize(k)
		}
	}
	return nil, vm.fault(in.Line, "NoSuchFieldError: %s.%s", in.Owner, in.Name)
}

// initialize runs c's static initializer once, after its superclass's.
// A class being initialized counts as initialized for its own
// initializer.
func (vm *VM) initialize(c *Class) error {
	if c.state != uninitialized {
		return nil
	}
	c.state = initializing
	if c.super != nil {
		if err := vm.initialize(c.super); err != nil {
			return err
		}
	}
	if clinit := c.methods["<clinit>()V"]; clinit != nil {
		debugPrintf("// [VM] initializing %s\n", c.Name)
		if _, err := vm.execute(clinit, nil); err != nil {
			return err
		}
	}
	c.state = initialized
	return nil
}

// newInstance allocates an object of c with every instance field of c and
// its superclasses set to its default value.
func (vm *VM) newInstance(c *Class) *Instance {
	vm.nextHash++
	obj := &Instance{Class: c, Fields: make(map[string]Value), hash: vm.nextHash}
	for k := c; k != nil; k = k.super {
		for _, f := range k.Fields {
			if !f.Modifiers.Has(types.Static) {
				obj.Fields[fieldKey(k.Name, f.Name)] = zeroValue(f.Descriptor)
			}
		}
	}
	return obj
}

func (vm *VM) intern(s string) *String {
	if str, ok := vm.strings[s]; ok {
		return str
	}
	str := &String{Value: s}
	vm.strings[s] = str
	return str
}

// NewString returns the interned string s.
func (vm *VM) NewString(s string) Value { return Ref(vm.intern(s)) }

func (vm *VM) classOf(o Object) *Class {
	switch x := o.(type) {
	case *Instance:
		return x.Class
	case *String:
		return vm.classes["java/lang/String"]
	}
	return vm.classes["java/lang/Object"]
}

// isSubclass reports whether c is the class or interface named name, or
// extends or implements it.
func (vm *VM) isSubclass(c *Class, name string) bool {
	for k := c; k != nil; k = k.super {
		if k.Name == name {
			return true
		}
		for _, iface := range k.interfaces {
			if vm.isSubclass(iface, name) {
				return true
			}
		}
	}
	return false
}

// isInstance reports whether o is an instance of the class or array type
// named by typeName.
func (vm *VM) isInstance(o Object, typeName string) bool {
	if arr, ok := o.(*Array); ok {
		return vm.assignableDesc(arr.Type, classDescriptor(typeName))
	}
	if typeName != "" && typeName[0] == '[' {
		return false
	}
	return vm.isSubclass(vm.classOf(o), typeName)
}

func isRefDesc(d string) bool { return d != "" && (d[0] == 'L' || d[0] == '[') }

func (vm *VM) assignableDesc(from, to string) bool {
	switch {
	case from == to:
		return true
	case to == "Ljava/lang/Object;":
		return isRefDesc(from)
	case from[0] == '[' && to[0] == '[':
		return isRefDesc(from[1:]) && isRefDesc(to[1:]) && vm.assignableDesc(from[1:], to[1:])
	case from[0] == 'L' && to[0] == 'L':
		c := vm.classes[from[1:len(from)-1]]
		return c != nil && vm.isSubclass(c, to[1:len(to)-1])
	}
	return false
}
