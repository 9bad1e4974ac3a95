package vm

import "fmt"

// typeWords returns the stack words a value of field descriptor desc takes.
func typeWords(desc string) int {
	switch desc {
	case "D":
		return 2
	case "V":
		return 0
	}
	return 1
}

// splitDescriptor breaks a method descriptor "(ID[Ljava/lang/String;)V"
// into its parameter descriptors and return descriptor.
func splitDescriptor(desc string) (params []string, ret string, err error) {
	if len(desc) < 3 || desc[0] != '(' {
		return nil, "", fmt.Errorf("malformed method descriptor %q", desc)
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		n, err := fieldDescriptorLen(desc[i:])
		if err != nil {
			return nil, "", fmt.Errorf("malformed method descriptor %q: %w", desc, err)
		}
		params = append(params, desc[i:i+n])
		i += n
	}
	if i >= len(desc) {
		return nil, "", fmt.Errorf("malformed method descriptor %q", desc)
	}
	ret = desc[i+1:]
	if ret != "V" {
		if n, err := fieldDescriptorLen(ret); err != nil || n != len(ret) {
			return nil, "", fmt.Errorf("malformed return type in %q", desc)
		}
	}
	return params, ret, nil
}

func fieldDescriptorLen(s string) (int, error) {
	dims := 0
	for dims < len(s) && s[dims] == '[' {
		dims++
	}
	if dims == len(s) {
		return 0, fmt.Errorf("missing element type")
	}
	switch s[dims] {
	case 'I', 'D', 'Z', 'C', 'B', 'S', 'J', 'F':
		return dims + 1, nil
	case 'L':
		for i := dims; i < len(s); i++ {
			if s[i] == ';' {
				return i + 1, nil
			}
		}
		return 0, fmt.Errorf("unterminated class type")
	}
	return 0, fmt.Errorf("unknown type %q", s[dims])
}

// methodWords returns the parameter and return words of desc.
func methodWords(desc string) (args, ret int, err error) {
	params, r, err := splitDescriptor(desc)
	if err != nil {
		return 0, 0, err
	}
	for _, p := range params {
		args += typeWords(p)
	}
	return args, typeWords(r), nil
}

// classDescriptor turns an internal class name or array descriptor into a
// field descriptor.
func classDescriptor(name string) string {
	if len(name) > 0 && name[0] == '[' {
		return name
	}
	return "L" + name + ";"
}
