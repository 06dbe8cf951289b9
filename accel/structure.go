// Package accel exposes a single acceleration-structure interface over the
// two concrete variants, a linear BVH and a two-level grid, as a tagged
// variant rather than an interface satisfied by both — the redesign this
// module makes over a virtual-dispatch base class.
package accel

import (
	"fmt"

	"github.com/achilleasa/rtaccel/accel/bvh"
	"github.com/achilleasa/rtaccel/accel/grid"
	"github.com/achilleasa/rtaccel/backend"
	"github.com/achilleasa/rtaccel/camera"
	"github.com/achilleasa/rtaccel/rterr"
	"github.com/achilleasa/rtaccel/scenebuf"
	"github.com/achilleasa/rtaccel/types"
)

// Kind selects which concrete acceleration structure a Structure wraps.
type Kind uint8

const (
	KindBVH Kind = iota
	KindGrid
)

func (k Kind) String() string {
	switch k {
	case KindBVH:
		return "BVH"
	case KindGrid:
		return "GRID"
	default:
		return "unknown"
	}
}

// ParseKind maps the CLI's -accStruct flag value to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "BVH":
		return KindBVH, nil
	case "GRID":
		return KindGrid, nil
	default:
		return 0, fmt.Errorf("accel: unknown structure kind %q, want BVH or GRID", s)
	}
}

// Contact is the variant-agnostic result of a traversal; both concrete
// managers' Contact types have this shape and are copied into it.
type Contact struct {
	Hit           bool
	T             float32
	Normal        types.Vec3
	MaterialIndex uint32
}

// Structure wraps exactly one of a *bvh.Manager or a *grid.Manager, chosen
// once at construction, and forwards every lifecycle call to it.
type Structure struct {
	kind Kind
	bvh  *bvh.Manager
	grid *grid.Manager
}

// New builds a Structure of the given kind against device.
func New(kind Kind, device backend.Device) *Structure {
	s := &Structure{kind: kind}
	switch kind {
	case KindBVH:
		s.bvh = bvh.NewManager(device)
	case KindGrid:
		s.grid = grid.NewManager(device)
	}
	return s
}

func (s *Structure) Kind() Kind { return s.kind }

func (s *Structure) Initialize(programSource string) error {
	switch s.kind {
	case KindBVH:
		return s.bvh.Initialize(programSource)
	case KindGrid:
		return s.grid.Initialize(programSource)
	default:
		return rterr.New("accel.Structure.Initialize", rterr.Configuration, fmt.Errorf("unset structure kind"))
	}
}

func (s *Structure) InitializeFrame(scene *scenebuf.Buffer) error {
	switch s.kind {
	case KindBVH:
		return s.bvh.InitializeFrame(scene)
	case KindGrid:
		return s.grid.InitializeFrame(scene)
	default:
		return rterr.New("accel.Structure.InitializeFrame", rterr.Configuration, fmt.Errorf("unset structure kind"))
	}
}

func (s *Structure) Construct() error {
	switch s.kind {
	case KindBVH:
		return s.bvh.Construct()
	case KindGrid:
		return s.grid.Construct()
	default:
		return rterr.New("accel.Structure.Construct", rterr.Configuration, fmt.Errorf("unset structure kind"))
	}
}

func (s *Structure) GenerateContactsCamera(cam *camera.Pinhole) error {
	switch s.kind {
	case KindBVH:
		return s.bvh.GenerateContactsCamera(cam)
	case KindGrid:
		return s.grid.GenerateContactsCamera(cam)
	default:
		return rterr.New("accel.Structure.GenerateContactsCamera", rterr.Configuration, fmt.Errorf("unset structure kind"))
	}
}

func (s *Structure) GenerateContactsRays(origins, dirs []types.Vec3) ([]Contact, error) {
	switch s.kind {
	case KindBVH:
		raw, err := s.bvh.GenerateContactsRays(origins, dirs)
		return toContacts(raw), err
	case KindGrid:
		raw, err := s.grid.GenerateContactsRays(origins, dirs)
		return toGridContacts(raw), err
	default:
		return nil, rterr.New("accel.Structure.GenerateContactsRays", rterr.Configuration, fmt.Errorf("unset structure kind"))
	}
}

func (s *Structure) PrimaryContacts() []Contact {
	switch s.kind {
	case KindBVH:
		return toContacts(s.bvh.PrimaryContacts())
	case KindGrid:
		return toGridContacts(s.grid.PrimaryContacts())
	default:
		return nil
	}
}

func toContacts(in []bvh.Contact) []Contact {
	out := make([]Contact, len(in))
	for i, c := range in {
		out[i] = Contact{Hit: c.Hit, T: c.T, Normal: c.Normal, MaterialIndex: c.MaterialIndex}
	}
	return out
}

func toGridContacts(in []grid.Contact) []Contact {
	out := make([]Contact, len(in))
	for i, c := range in {
		out[i] = Contact{Hit: c.Hit, T: c.T, Normal: c.Normal, MaterialIndex: c.MaterialIndex}
	}
	return out
}
