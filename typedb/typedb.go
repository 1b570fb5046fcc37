// Package typedb builds the read-only descriptor database the transcoder
// resolves message types against. A database is assembled once from the
// service configuration (descriptor-set files produced by protoc, in-memory
// descriptor sets, or raw .proto sources) and then shared across requests.
package typedb

import (
	"fmt"
	"os"
	"strings"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"

	// Link the well-known types so they resolve through the global
	// registry even when no loaded descriptor set carries them.
	_ "google.golang.org/protobuf/types/known/anypb"
	_ "google.golang.org/protobuf/types/known/durationpb"
	_ "google.golang.org/protobuf/types/known/emptypb"
	_ "google.golang.org/protobuf/types/known/fieldmaskpb"
	_ "google.golang.org/protobuf/types/known/structpb"
	_ "google.golang.org/protobuf/types/known/timestamppb"
	_ "google.golang.org/protobuf/types/known/wrapperspb"
)

// DB resolves fully qualified type URLs to message descriptors. It is
// immutable after Build and safe for concurrent use.
type DB struct {
	files *protoregistry.Files
}

// Builder accumulates descriptor sources for a DB.
type Builder struct {
	fileSet *descriptorpb.FileDescriptorSet
	seen    map[string]bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		fileSet: &descriptorpb.FileDescriptorSet{},
		seen:    map[string]bool{},
	}
}

// AddDescriptorSetFile loads a serialized FileDescriptorSet from path, as
// written by `protoc --descriptor_set_out`.
func (b *Builder) AddDescriptorSetFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read descriptor set %s: %w", path, err)
	}
	fds := &descriptorpb.FileDescriptorSet{}
	if err := proto.Unmarshal(data, fds); err != nil {
		return fmt.Errorf("failed to parse descriptor set %s: %w", path, err)
	}
	b.AddDescriptorSet(fds)
	return nil
}

// AddDescriptorSet merges an in-memory descriptor set.
func (b *Builder) AddDescriptorSet(fds *descriptorpb.FileDescriptorSet) {
	for _, fd := range fds.GetFile() {
		if b.seen[fd.GetName()] {
			continue
		}
		b.seen[fd.GetName()] = true
		b.fileSet.File = append(b.fileSet.File, fd)
	}
}

// AddProtoSources compiles raw .proto sources given as a filename-to-content
// map, without shelling out to protoc. Imports of well-known files resolve
// against the types linked into the binary.
func (b *Builder) AddProtoSources(sources map[string]string) error {
	filenames := make([]string, 0, len(sources))
	for name := range sources {
		filenames = append(filenames, name)
	}
	parser := protoparse.Parser{
		Accessor:              protoparse.FileContentsFromMap(sources),
		IncludeSourceCodeInfo: false,
		LookupImport:          desc.LoadFileDescriptor,
	}
	parsed, err := parser.ParseFiles(filenames...)
	if err != nil {
		return fmt.Errorf("failed to compile proto sources: %w", err)
	}
	for _, fd := range parsed {
		b.addFileWithDeps(fd)
	}
	return nil
}

func (b *Builder) addFileWithDeps(fd *desc.FileDescriptor) {
	for _, dep := range fd.GetDependencies() {
		b.addFileWithDeps(dep)
	}
	if b.seen[fd.GetName()] {
		return
	}
	b.seen[fd.GetName()] = true
	b.fileSet.File = append(b.fileSet.File, fd.AsFileDescriptorProto())
}

// Build links the accumulated descriptors into a DB.
func (b *Builder) Build() (*DB, error) {
	files, err := protodesc.NewFiles(b.fileSet)
	if err != nil {
		return nil, fmt.Errorf("failed to link descriptors: %w", err)
	}
	return &DB{files: files}, nil
}

// ResolveMessageType maps a type URL (or bare fully qualified name) to its
// message descriptor. URLs in the "type.googleapis.com/pkg.Message" style
// have everything up to the last slash stripped. Well-known types missing
// from the database fall back to the descriptors linked into the binary.
func (db *DB) ResolveMessageType(url string) (protoreflect.MessageDescriptor, error) {
	name := url
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return nil, fmt.Errorf("empty type URL")
	}
	fullName := protoreflect.FullName(name)
	d, err := db.files.FindDescriptorByName(fullName)
	if err != nil {
		d, err = protoregistry.GlobalFiles.FindDescriptorByName(fullName)
	}
	if err != nil {
		return nil, fmt.Errorf("message type %q not found", name)
	}
	md, ok := d.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, fmt.Errorf("%q is not a message type", name)
	}
	return md, nil
}

// RangeFiles iterates the database's files, mainly for diagnostics.
func (db *DB) RangeFiles(f func(protoreflect.FileDescriptor) bool) {
	db.files.RangeFiles(f)
}
