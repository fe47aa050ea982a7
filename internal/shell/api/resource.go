package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/manyminds/api2go"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/ports"
)

// InstanceResource implements the api2go read side of app-instances; writes
// go through the dedicated /apps endpoints in handler.go, since install and
// update carry a richer request shape (alias, properties, language)
// than plain JSON:API CRUD expresses.
type InstanceResource struct {
	Store ports.AppStore
}

// FindAll lists every installed instance.
// GET /api/v1/app-instances
func (r InstanceResource) FindAll(req api2go.Request) (api2go.Responder, error) {
	ctx := req.PlainRequest.Context()
	instances, err := r.Store.AllInstances(ctx)
	if err != nil {
		return &Response{Code: http.StatusInternalServerError}, err
	}
	out := make([]AppInstanceResource, 0, len(instances))
	for _, instance := range instances {
		out = append(out, FromDomain(instance))
	}
	return &Response{Code: http.StatusOK, Res: out}, nil
}

// FindOne returns one installed instance by ID.
// GET /api/v1/app-instances/{id}
func (r InstanceResource) FindOne(id string, req api2go.Request) (api2go.Responder, error) {
	ctx := req.PlainRequest.Context()
	instanceID, err := uuid.Parse(id)
	if err != nil {
		return &Response{Code: http.StatusBadRequest}, api2go.NewHTTPError(err, "invalid instance id", http.StatusBadRequest)
	}
	instance, found, err := r.Store.GetInstanceByID(ctx, instanceID)
	if err != nil {
		return &Response{Code: http.StatusInternalServerError}, err
	}
	if !found {
		return &Response{Code: http.StatusNotFound}, api2go.NewHTTPError(
			fmt.Errorf("instance not found"), "instance not found", http.StatusNotFound,
		)
	}
	return &Response{Code: http.StatusOK, Res: FromDomain(instance)}, nil
}

// Response implements api2go.Responder.
type Response struct {
	Code int
	Res  any
	Meta map[string]any
}

func (r *Response) Metadata() map[string]any {
	return r.Meta
}

func (r *Response) Result() any {
	return r.Res
}

func (r *Response) StatusCode() int {
	return r.Code
}
