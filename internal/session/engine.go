package session

import (
	"fmt"
	"image"
	"io"
	"log"
	"time"

	"github.com/ironsheep/image-features-mcp/internal/codec"
	"github.com/ironsheep/image-features-mcp/internal/config"
	"github.com/ironsheep/image-features-mcp/internal/detection"
	"github.com/ironsheep/image-features-mcp/internal/feature"
	"github.com/ironsheep/image-features-mcp/internal/imaging"
	"github.com/ironsheep/image-features-mcp/internal/match"
	"github.com/ironsheep/image-features-mcp/internal/render"
)

// MatchResult is the outcome of a match operation.
type MatchResult struct {
	Correspondences []match.Correspondence `json:"correspondences"`
	Area            int                    `json:"area"`
	Elapsed         time.Duration          `json:"-"`
}

// Engine runs the boundary operations against a Session.
//
// Every operation publishes its outcome on the session: success clears
// Session.Error, failure sets it to the error text and leaves the slots as they
// were.
type Engine struct {
	session  *Session
	points   detection.Detector
	lines    detection.Detector
	matchOpt match.Options
	renderer *render.Renderer
	maxDim   int
	logger   *log.Logger
	debug    bool
}

// NewEngine builds an engine with a fresh session. A nil logger discards
// output.
func NewEngine(cfg config.Config, logger *log.Logger) (*Engine, error) {
	points, err := detection.NewPointDetector(cfg.Points)
	if err != nil {
		return nil, err
	}
	renderer, err := render.NewRenderer(cfg.Render)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Engine{
		session:  New(),
		points:   points,
		lines:    detection.NewLineDetector(cfg.Lines),
		matchOpt: cfg.Match,
		renderer: renderer,
		maxDim:   cfg.MaxImageDimension,
		logger:   logger,
		debug:    cfg.Logging.Level == config.LevelDebug,
	}, nil
}

// Session returns the engine's session.
func (e *Engine) Session() *Session {
	return e.session
}

// DetectAndCompute detects features of kind on img, stores them in the
// (role, kind) slot and returns their wire form.
func (e *Engine) DetectAndCompute(role feature.Role, kind feature.Kind, img image.Image) ([]map[string]any, error) {
	op := fmt.Sprintf("detect %s %s", role, kind)

	set, err := e.detect(kind, img)
	if err != nil {
		return nil, e.fail(op, err)
	}
	wire, err := codec.Serialize(set)
	if err != nil {
		return nil, e.fail(op, err)
	}

	e.session.Set(role, kind, set)
	e.succeed()
	e.debugf("%s: %d features", op, set.Len())
	return wire, nil
}

// SetRecords decodes wire records and stores them in the (role, kind) slot.
// Either the whole batch is stored or nothing is.
func (e *Engine) SetRecords(role feature.Role, kind feature.Kind, wire []map[string]any) (int, error) {
	op := fmt.Sprintf("set %s %s", role, kind)

	set, err := codec.Deserialize(kind, wire)
	if err != nil {
		return 0, e.fail(op, err)
	}

	e.session.Set(role, kind, set)
	e.succeed()
	e.debugf("%s: %d records", op, set.Len())
	return set.Len(), nil
}

// Match matches the query and train sets of kind and publishes the area of the
// matched region.
func (e *Engine) Match(kind feature.Kind) (*MatchResult, error) {
	op := fmt.Sprintf("match %s", kind)

	result, err := e.match(kind)
	if err != nil {
		return nil, e.fail(op, err)
	}

	e.session.area = result.Area
	e.succeed()
	e.debugf("%s: %d correspondences, area %d, %v", op, len(result.Correspondences), result.Area, result.Elapsed)
	return result, nil
}

// Reset empties the session.
func (e *Engine) Reset() {
	e.session.Reset()
	e.debugf("reset")
}

// RenderFeatures detects features of kind on img and draws them. The session
// slots are not touched.
func (e *Engine) RenderFeatures(kind feature.Kind, img image.Image) (*image.NRGBA, error) {
	op := fmt.Sprintf("render %s", kind)

	set, err := e.detect(kind, img)
	if err != nil {
		return nil, e.fail(op, err)
	}
	out, err := e.renderer.Features(imaging.FitWithin(img, e.maxDim), set.Records)
	if err != nil {
		return nil, e.fail(op, err)
	}

	e.succeed()
	return out, nil
}

// RenderMatches matches the stored sets of kind and draws the correspondences
// between the two images. The images should be the ones the stored sets were
// detected on.
func (e *Engine) RenderMatches(kind feature.Kind, query, train image.Image) (*image.NRGBA, *MatchResult, error) {
	op := fmt.Sprintf("render %s matches", kind)

	if err := imaging.Validate(query); err != nil {
		return nil, nil, e.fail(op, fmt.Errorf("query: %w", err))
	}
	if err := imaging.Validate(train); err != nil {
		return nil, nil, e.fail(op, fmt.Errorf("train: %w", err))
	}

	result, err := e.match(kind)
	if err != nil {
		return nil, nil, e.fail(op, err)
	}

	q := e.session.Get(feature.RoleQuery, kind)
	t := e.session.Get(feature.RoleTrain, kind)
	out, err := e.renderer.Matches(
		imaging.FitWithin(query, e.maxDim),
		imaging.FitWithin(train, e.maxDim),
		q.Records, t.Records, result.Correspondences,
	)
	if err != nil {
		return nil, nil, e.fail(op, err)
	}

	e.session.area = result.Area
	e.succeed()
	return out, result, nil
}

func (e *Engine) detect(kind feature.Kind, img image.Image) (feature.Set, error) {
	if err := imaging.Validate(img); err != nil {
		return feature.Set{}, err
	}

	d := e.points
	if kind == feature.KindLine {
		d = e.lines
	}

	start := time.Now()
	records, err := d.DetectAndCompute(imaging.FitWithin(img, e.maxDim))
	if err != nil {
		return feature.Set{}, err
	}
	e.debugf("detected %d %s features in %v", len(records), kind, time.Since(start))
	return feature.NewSet(kind, records), nil
}

func (e *Engine) match(kind feature.Kind) (*MatchResult, error) {
	if !e.session.Ready(kind) {
		return nil, fmt.Errorf("%w: %s matching needs query (%d) and train (%d) features",
			feature.ErrEmptySession, kind,
			e.session.Len(feature.RoleQuery, kind), e.session.Len(feature.RoleTrain, kind))
	}

	q := e.session.Get(feature.RoleQuery, kind)
	t := e.session.Get(feature.RoleTrain, kind)

	start := time.Now()
	matches, err := match.Match(q, t, e.matchOpt)
	if err != nil {
		return nil, err
	}
	return &MatchResult{
		Correspondences: matches,
		Area:            match.Area(q, t, matches),
		Elapsed:         time.Since(start),
	}, nil
}

// Fail publishes err as the outcome of op. The boundary uses it for failures
// that happen before an engine operation can run, such as an unreadable image
// file.
func (e *Engine) Fail(op string, err error) error {
	return e.fail(op, err)
}

func (e *Engine) fail(op string, err error) error {
	e.session.err = fmt.Sprintf("%s: %v", op, err)
	e.logger.Printf("%s failed: %v", op, err)
	return err
}

func (e *Engine) succeed() {
	e.session.err = ""
}

func (e *Engine) debugf(format string, args ...any) {
	if e.debug {
		e.logger.Printf("[DEBUG] "+format, args...)
	}
}
