package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/application"
	"github.com/qazmun/mun/core/user"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=field,-other`; a leading "-" sorts descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// queryInt returns the integer query parameter `name`, or def when it is missing or malformed.
func queryInt(ctx echo.Context, name string, def int) int {
	if n, err := strconv.Atoi(ctx.QueryParam(name)); err == nil {
		return n
	}
	return def
}

// queryBool returns nil when the query parameter `name` is missing or malformed.
func queryBool(ctx echo.Context, name string) *bool {
	b, err := strconv.ParseBool(ctx.QueryParam(name))
	if err != nil {
		return nil
	}
	return &b
}

func queryStatuses(ctx echo.Context) []application.Status {
	var statuses []application.Status
	for _, s := range ctx.QueryParams()["status"] {
		if st := application.Status(core.CleanString(s, true /* lower */)); st.IsValid() {
			statuses = append(statuses, st)
		}
	}
	return statuses
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	SignUpResponse struct {
		Token   string       `json:"token"`
		Profile user.Profile `json:"profile"`
	}

	RoleRequest struct {
		Role string `json:"role"`
	}

	SchoolRequest struct {
		SchoolID int `json:"school_id"`
	}

	RegistrationStateRequest struct {
		RegistrationOpen *bool `json:"registration_open"`
	}
)
