package graph

import (
	"context"

	"github.com/google/uuid"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
)

// EdgeInclusion is the resolver's verdict on one dependency edge during a
// desired-tree walk.
type EdgeInclusion int

const (
	// NotIncluded means the edge is dropped entirely for this walk.
	NotIncluded EdgeInclusion = iota
	// IncludeOnlyApp means an existing instance satisfies the edge and its
	// subgraph is reused as-is, without descending into it again.
	IncludeOnlyApp
	// IncludeWithDependencies means a node (new or existing) must be
	// resolved and its own declared dependencies walked in turn.
	IncludeWithDependencies
)

// DesiredNode is the walk context handed to OnDesiredNode once every
// included dependency of this node has already fired.
type DesiredNode struct {
	ParentApp            domain.App
	Declaration          *domain.DependencyDeclaration
	Alternative          *domain.AppDependencyConfig
	App                  domain.App
	Alias                string
	Properties           domain.Properties
	Target               domain.ConfigurationTarget
	Config               domain.AppConfiguration
	ResolvedDependencies []domain.Dependency
}

// OnDesiredNode is invoked once per visited desired node, post-order. It
// returns the instanceId this node resolved to (new or reused) and whether
// the node should be surfaced as an edge to its parent.
type OnDesiredNode func(ctx context.Context, node DesiredNode) (instanceID uuid.UUID, include bool, err error)

// IncludeEdgeDecision is the resolver's combined verdict for one declared
// dependency: what to do, which alternative/app it picked, and - for a
// fresh node - the alias/properties to render it with.
type IncludeEdgeDecision struct {
	Inclusion          EdgeInclusion
	Alternative        domain.AppDependencyConfig
	ResolvedApp        domain.App
	ResolvedAlias      string
	ResolvedProperties domain.Properties
	ExistingID         *uuid.UUID
}

// IncludeEdge is called once per declaration found on a rendered
// AppConfiguration during a desired-tree walk.
type IncludeEdge func(ctx context.Context, parentApp domain.App, decl domain.DependencyDeclaration) (IncludeEdgeDecision, error)

// ExistingNode is the walk context handed to OnExistingNode, post-order.
type ExistingNode struct {
	Parent    *domain.AppInstance
	ParentApp domain.App
	Instance  domain.AppInstance
	App       domain.App
	Config    domain.AppConfiguration
}

// OnExistingNode is invoked once per visited existing node, post-order. Its
// boolean return decides whether the node is surfaced to the caller.
type OnExistingNode func(ctx context.Context, node ExistingNode) (include bool, err error)

// IncludeInstance gates descent from parent into child during an existing
// walk. It may perform I/O (e.g. the delete gate's read-only demotion).
type IncludeInstance func(ctx context.Context, parent, child domain.AppInstance) (bool, error)

// LookupInstance resolves a Dependency's instanceId to a live AppInstance.
type LookupInstance func(ctx context.Context, id uuid.UUID) (domain.AppInstance, bool, error)

// LookupApp resolves an appId to its catalog App.
type LookupApp func(ctx context.Context, appID string) (domain.App, error)

// Warn reports a locally-recovered problem (missing app/instance, render
// failure) that should not abort the walk.
type Warn func(message string)
