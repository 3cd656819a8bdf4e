package interfaces

import (
	"context"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
)

type AddressStore interface {
	ListRegions(ctx context.Context, regionType string) ([]v1.AddressRegion, error)
	GetRegion(ctx context.Context, id int64) (*v1.AddressRegion, error)
}
