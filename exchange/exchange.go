package exchange

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	mathrand "math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/meshkv/aee/exchange/exlog"
	"github.com/meshkv/aee/metrics"
)

// Exchange is one run of the six-phase reconciliation protocol between a
// blue and a pink target set (spec.md §3). All fields below phaseStart are
// confined to the single actor goroutine started by Start and must not be
// touched from any other goroutine; Reply is the only safe cross-goroutine
// entry point once the exchange is running.
type Exchange struct {
	id     string
	cfg    Config
	tree   TreeOps
	clock  clockwork.Clock
	rng    *mathrand.Rand
	logger *zap.Logger

	blueTargets []Target
	pinkTargets []Target

	repairAction RepairAction
	replyAction  ReplyAction

	replyCh chan replyEvent
	done    chan struct{}

	// actor-confined state
	phase        Phase
	pendingPhase Phase
	leadColour   Colour

	collecting   bool
	expectedKind ResultKind
	mergeFn      mergeFunc
	blueAcc      Result
	pinkAcc      Result
	blueRecv     int
	blueExp      int
	pinkRecv     int
	pinkExp      int
	phaseStart   time.Time

	nextFire   time.Time
	nextAction func()

	rootCompareDeltas   []BranchID
	branchCompareDeltas []SegmentID
	pendingBranchIDs    []BranchID
	pendingSegmentIDs   []SegmentID

	terminated bool
}

type replyEvent struct {
	colour Colour
	result Result
}

// Option configures an Exchange at Start time.
type Option func(*Exchange)

// WithConfig overrides the default configuration constants.
func WithConfig(cfg Config) Option {
	return func(ex *Exchange) { ex.cfg = cfg }
}

// WithClock injects a clockwork.Clock, used by tests to deterministically
// drive deadlines and inter-phase pauses.
func WithClock(clock clockwork.Clock) Option {
	return func(ex *Exchange) { ex.clock = clock }
}

// WithRand injects the random source used for jitter, per spec.md §9's
// requirement that it be seeded per-exchange and injectable for
// deterministic tests.
func WithRand(rng *mathrand.Rand) Option {
	return func(ex *Exchange) { ex.rng = rng }
}

// WithLogger sets the structured logger used for EX001-EX004 events.
func WithLogger(logger *zap.Logger) Option {
	return func(ex *Exchange) { ex.logger = logger }
}

// Start validates both target lists are non-empty, allocates an exchange
// identifier, and begins the Prepare phase with a jittered pause,
// returning immediately (spec.md §4.1).
func Start(
	blueTargets, pinkTargets []Target,
	tree TreeOps,
	repairAction RepairAction,
	replyAction ReplyAction,
	opts ...Option,
) (*Exchange, error) {
	if len(blueTargets) == 0 || len(pinkTargets) == 0 {
		return nil, ErrEmptyTargets
	}

	ex := &Exchange{
		id:           uuid.NewString(),
		cfg:          DefaultConfig(),
		tree:         tree,
		clock:        clockwork.NewRealClock(),
		rng:          mathrand.New(mathrand.NewSource(defaultSeed())),
		logger:       zap.NewNop(),
		blueTargets:  blueTargets,
		pinkTargets:  pinkTargets,
		repairAction: repairAction,
		replyAction:  replyAction,
		replyCh:      make(chan replyEvent, 4096),
		done:         make(chan struct{}),
		phase:        Prepare,
	}
	for _, opt := range opts {
		opt(ex)
	}

	ex.blueExp = len(blueTargets)
	ex.pinkExp = len(pinkTargets)

	exlog.Start(ex.logger, ex.id, ex.blueExp, ex.pinkExp)
	metrics.ReportStarted()

	ex.armPause(jitterPause(ex.rng, ex.cfg.TransitionPauseMS), ex.onPrepareElapsed)
	go ex.run()

	return ex, nil
}

// ID returns the exchange's opaque identifier.
func (ex *Exchange) ID() string { return ex.id }

// Done returns a channel that is closed once the exchange has terminated.
func (ex *Exchange) Done() <-chan struct{} { return ex.done }

// Reply delivers a phase reply to the exchange. It never blocks: if the
// exchange has already terminated (or its inbox is saturated), the reply
// is silently discarded, matching spec.md §4.3's "late replies arriving
// after termination are discarded."
func (ex *Exchange) Reply(colour Colour, result Result) {
	select {
	case ex.replyCh <- replyEvent{colour: colour, result: result}:
	default:
	}
}

// defaultSeed draws a seed for the per-exchange jitter source from
// crypto/rand, matching spec.md §9's note that the random source is "out
// of scope" ambient plumbing external to the engine's own logic.
func defaultSeed() int64 {
	var buf [8]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(buf[:]))
}
