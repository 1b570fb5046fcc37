package transcode

import (
	"encoding/base64"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// dynBuilder accumulates a dynamically typed subtree bound to one of the
// google.protobuf.Struct family types. Inner field names are not resolved
// against any descriptor; the tree is converted to the target type when the
// subtree closes. Nesting is bounded by maxStructNestingDepth.
type dynBuilder struct {
	target   protoreflect.MessageDescriptor
	assign   func(protoreflect.Value)
	listener *StatusErrorListener
	loc      string

	stack    []*dynValue
	finished bool
}

type dynKind int

const (
	dynScalar dynKind = iota
	dynObject
	dynList
)

type dynValue struct {
	kind   dynKind
	scalar dataPiece
	fields []dynField
	elems  []*dynValue
}

type dynField struct {
	name  string
	value *dynValue
}

func (d *dynBuilder) startObject(name string) {
	d.pushContainer(name, &dynValue{kind: dynObject})
}

func (d *dynBuilder) startList(name string) {
	d.pushContainer(name, &dynValue{kind: dynList})
}

func (d *dynBuilder) pushContainer(name string, node *dynValue) {
	if d.finished {
		return
	}
	if len(d.stack) >= maxStructNestingDepth {
		d.listener.Setf("%s: %s exceeds the maximum nesting depth of %d",
			d.loc, d.target.FullName(), maxStructNestingDepth)
		d.finished = true
		return
	}
	d.attach(name, node)
	d.stack = append(d.stack, node)
}

func (d *dynBuilder) endObject() {
	d.popContainer(dynObject)
}

func (d *dynBuilder) endList() {
	d.popContainer(dynList)
}

func (d *dynBuilder) popContainer(kind dynKind) {
	if d.finished || len(d.stack) == 0 {
		return
	}
	top := d.stack[len(d.stack)-1]
	if top.kind != kind {
		d.listener.Setf("%s: mismatched close in %s value", d.loc, d.target.FullName())
		d.finished = true
		return
	}
	d.stack = d.stack[:len(d.stack)-1]
	if len(d.stack) == 0 {
		d.complete(top)
	}
}

func (d *dynBuilder) render(name string, p dataPiece) {
	if d.finished {
		return
	}
	node := &dynValue{kind: dynScalar, scalar: p}
	if len(d.stack) == 0 {
		// A bare scalar bound directly to a Value field.
		d.complete(node)
		return
	}
	d.attach(name, node)
}

// attach links node into the open container, or records it as the root.
func (d *dynBuilder) attach(name string, node *dynValue) {
	if len(d.stack) == 0 {
		return
	}
	top := d.stack[len(d.stack)-1]
	switch top.kind {
	case dynObject:
		top.fields = append(top.fields, dynField{name: name, value: node})
	case dynList:
		top.elems = append(top.elems, node)
	}
}

func (d *dynBuilder) complete(root *dynValue) {
	d.finished = true
	v, ok := d.buildTarget(root)
	if ok {
		d.assign(v)
	}
}

func (d *dynBuilder) buildTarget(root *dynValue) (protoreflect.Value, bool) {
	switch d.target.FullName() {
	case "google.protobuf.Struct":
		if root.kind != dynObject {
			d.listener.Setf("%s: expected a JSON object for google.protobuf.Struct", d.loc)
			return protoreflect.Value{}, false
		}
		return d.buildStruct(d.target, root), true
	case "google.protobuf.ListValue":
		if root.kind != dynList {
			d.listener.Setf("%s: expected a JSON array for google.protobuf.ListValue", d.loc)
			return protoreflect.Value{}, false
		}
		return d.buildListValue(d.target, root), true
	default:
		return d.buildValue(d.target, root), true
	}
}

func (d *dynBuilder) buildStruct(md protoreflect.MessageDescriptor, node *dynValue) protoreflect.Value {
	msg := dynamicpb.NewMessage(md)
	fieldsFd := md.Fields().ByName("fields")
	mp := msg.Mutable(fieldsFd).Map()
	valueMD := fieldsFd.MapValue().Message()
	for _, f := range node.fields {
		mp.Set(protoreflect.ValueOfString(f.name).MapKey(), d.buildValue(valueMD, f.value))
	}
	return protoreflect.ValueOfMessage(msg)
}

func (d *dynBuilder) buildListValue(md protoreflect.MessageDescriptor, node *dynValue) protoreflect.Value {
	msg := dynamicpb.NewMessage(md)
	valuesFd := md.Fields().ByName("values")
	list := msg.Mutable(valuesFd).List()
	valueMD := valuesFd.Message()
	for _, e := range node.elems {
		list.Append(d.buildValue(valueMD, e))
	}
	return protoreflect.ValueOfMessage(msg)
}

func (d *dynBuilder) buildValue(md protoreflect.MessageDescriptor, node *dynValue) protoreflect.Value {
	msg := dynamicpb.NewMessage(md)
	fields := md.Fields()
	switch node.kind {
	case dynObject:
		fd := fields.ByName("struct_value")
		msg.Set(fd, d.buildStruct(fd.Message(), node))
	case dynList:
		fd := fields.ByName("list_value")
		msg.Set(fd, d.buildListValue(fd.Message(), node))
	case dynScalar:
		switch node.scalar.kind {
		case dataNull:
			msg.Set(fields.ByName("null_value"), protoreflect.ValueOfEnum(0))
		case dataBool:
			msg.Set(fields.ByName("bool_value"), protoreflect.ValueOfBool(node.scalar.bval))
		case dataString:
			msg.Set(fields.ByName("string_value"), protoreflect.ValueOfString(node.scalar.sval))
		case dataBytes:
			msg.Set(fields.ByName("string_value"),
				protoreflect.ValueOfString(base64.StdEncoding.EncodeToString(node.scalar.byteval)))
		default:
			n, err := node.scalar.toDouble()
			if err != nil {
				d.listener.Setf("%s: invalid number in %s value", d.loc, d.target.FullName())
				return protoreflect.ValueOfMessage(msg)
			}
			msg.Set(fields.ByName("number_value"), protoreflect.ValueOfFloat64(n))
		}
	}
	return protoreflect.ValueOfMessage(msg)
}
