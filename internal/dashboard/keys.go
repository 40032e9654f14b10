package dashboard

import (
	"fmt"

	"github.com/bwise1/civic_dispatch/internal/model"
	"github.com/google/go-querystring/query"
	"github.com/google/uuid"
)

const coordinateDecimals = 4

type pointParams struct {
	Latitude  float64 `url:"lat"`
	Longitude float64 `url:"lng"`
}

// CitizenKey scopes a citizen dashboard to the viewer and the rounded point,
// so small GPS jitter reuses the same entry.
func CitizenKey(viewer uuid.UUID, point model.Location) string {
	p := point.Rounded(coordinateDecimals)
	v, err := query.Values(pointParams{Latitude: p.Latitude, Longitude: p.Longitude})
	if err != nil {
		return fmt.Sprintf("dashboard:citizen:%s:lat=%v&lng=%v", viewer, p.Latitude, p.Longitude)
	}
	return fmt.Sprintf("dashboard:citizen:%s:%s", viewer, v.Encode())
}

func AuthorityKey(authority uuid.UUID) string {
	return "dashboard:authority:" + authority.String()
}

func AdminKey() string {
	return "dashboard:admin:global"
}
