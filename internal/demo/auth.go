package demo

import (
	"context"
	"fmt"
	"slices"

	"github.com/hanpama/mutagraph/internal/di"
	"github.com/hanpama/mutagraph/internal/mutation"
	"google.golang.org/grpc/metadata"
)

// Admins authorizes callers whose forwarded x-role metadata lists every
// role of the mutation.
//
// The x-role header comes from the client and is only forwarded when listed
// in server.metadata-headers. List it only behind a proxy that authenticates
// callers and overwrites the header; otherwise any caller can claim a role.
type Admins struct{}

func (Admins) Authorize(ctx context.Context, f *mutation.Field) error {
	md, err := di.ResolveAs[metadata.MD](di.ValuesFromContext(ctx))
	if err != nil {
		return fmt.Errorf("%s: no caller roles", f.Name)
	}
	have := md.Get("x-role")
	for _, role := range f.Roles {
		if !slices.Contains(have, role) {
			return fmt.Errorf("%s requires role %s", f.Name, role)
		}
	}
	return nil
}
