package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/netstar-dev/advisor/internal/bus"
	"github.com/netstar-dev/advisor/internal/coordinator"
	"github.com/netstar-dev/advisor/internal/correlator"
	"github.com/netstar-dev/advisor/internal/logger"
	"github.com/netstar-dev/advisor/internal/sources/catalog"
	redisstore "github.com/netstar-dev/advisor/internal/store/redis"
	"github.com/netstar-dev/advisor/internal/tabs"
)

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time         // for testing, defaults to time.Now
	AllowedOrigins []string                 // origins allowed to call the command API
	RedisClient    *redis.Client            // Redis client connection
	Store          *redisstore.Store        // persistent assessment/prefs store
	Bus            *bus.Bus                 // in-process broadcast bus
	Registry       *tabs.Registry           // live mirror of the surfaces' open tabs
	Coordinator    *coordinator.Coordinator // command hub
	Correlator     *correlator.Correlator   // request/response matching for deferred answers
	Catalog        *catalog.Catalog         // security indicator catalog
}
