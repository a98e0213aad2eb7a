package command

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClientRegistryInsertionOrder(t *testing.T) {
	r := NewClientRegistry()
	r.Add("b", ClientRecord{RemoteIP: "10.0.0.2"})
	r.Add("a", ClientRecord{RemoteIP: "10.0.0.1"})
	want := []ClientRecord{{RemoteIP: "10.0.0.2"}, {RemoteIP: "10.0.0.1"}}
	if diff := cmp.Diff(want, r.Snapshot()); diff != "" {
		t.Fatalf("unexpected snapshot (-want +got):\n%s", diff)
	}
}

func TestClientRegistryRemove(t *testing.T) {
	r := NewClientRegistry()
	r.Add("a", ClientRecord{RemoteIP: "10.0.0.1"})
	r.Add("b", ClientRecord{RemoteIP: "10.0.0.2"})
	r.Remove("a")
	want := []ClientRecord{{RemoteIP: "10.0.0.2"}}
	if diff := cmp.Diff(want, r.Snapshot()); diff != "" {
		t.Fatalf("unexpected snapshot after remove (-want +got):\n%s", diff)
	}
}
