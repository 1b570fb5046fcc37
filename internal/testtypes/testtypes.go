// Package testtypes compiles the payload message types the package tests
// translate against. Types are built from in-memory .proto sources so tests
// need no protoc and no generated code.
package testtypes

import (
	"testing"

	"github.com/drewfead/transcode/typedb"
)

// ProtoSource is the proto3 fixture file.
const ProtoSource = `syntax = "proto3";

package payloads;

import "google/protobuf/struct.proto";
import "google/protobuf/timestamp.proto";
import "google/protobuf/wrappers.proto";

message BytesPayload {
  bytes payload = 1;
}

message StringPayload {
  string payload = 1;
}

message Int32ArrayPayload {
  repeated int32 payload = 1;
}

message DoubleArrayPayload {
  repeated double payload = 1;
}

message StringArrayPayload {
  repeated string payload = 1;
}

message NestedPayload {
  NestedPayload nested = 1;
  string payload = 2;
}

message StructPayload {
  google.protobuf.Struct payload = 1;
}

enum Color {
  COLOR_UNSPECIFIED = 0;
  RED = 1;
  GREEN = 2;
}

message MultiPayload {
  string name = 1;
  int32 count = 2;
  bool flag = 3;
  double ratio = 4;
  bytes blob = 5;
  Color color = 6;
  NestedPayload child = 7;
  repeated string tags = 8;
  map<string, string> labels = 9;
  map<string, int32> counters = 10;
  google.protobuf.Value value = 11;
  google.protobuf.ListValue list_value = 12;
  google.protobuf.Timestamp created_at = 13;
  google.protobuf.Int32Value limit = 14;
  uint32 unsigned_count = 15;
  int64 big_count = 16;
  uint64 big_unsigned = 17;
  float ratio32 = 18;
  string renamed = 19 [json_name = "customName"];
}
`

// Proto2Source carries the proto2 type with required-field semantics.
const Proto2Source = `syntax = "proto2";

package payloads;

message RequiredPayload {
  required string id = 1;
  optional string note = 2;
}
`

// NewDB compiles the fixture sources into a descriptor database.
func NewDB(t *testing.T) *typedb.DB {
	t.Helper()
	b := typedb.NewBuilder()
	if err := b.AddProtoSources(map[string]string{
		"payloads.proto":  ProtoSource,
		"payloads2.proto": Proto2Source,
	}); err != nil {
		t.Fatalf("failed to compile fixture protos: %v", err)
	}
	db, err := b.Build()
	if err != nil {
		t.Fatalf("failed to build type database: %v", err)
	}
	return db
}
