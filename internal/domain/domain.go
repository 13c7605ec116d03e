package domain

import (
	"go.uber.org/fx"

	"github.com/tranvuongduy2003/jobrunner/internal/domain/clock"
)

// DomainModule provides the domain layer's pure dependencies: currently
// just the system clock handlers and the job pipeline use to read "now".
var DomainModule = fx.Module("domain",
	fx.Provide(
		fx.Annotate(clock.NewSystem, fx.As(new(clock.Clock))),
	),
)
