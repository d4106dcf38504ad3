package landuse

import (
	"context"
	"fmt"
	"log"

	"github.com/GrainArc/LandMap/geokernel"
	"github.com/paulmach/orb"
)

// Outcome 一次提交或编辑的结果
//
// 被拒绝时 Accepted 为 false，存储不变。被接受时 Changes 列出全部存储变更，
// 包括级联裁剪；CascadeFailed 中的要素因内核错误未被裁剪，其余级联变更仍然生效。
type Outcome struct {
	Verdict
	Feature       *Feature         `json:"feature,omitempty"`
	Changes       ChangeSet        `json:"changes,omitempty"`
	CascadeFailed []CascadeFailure `json:"cascadeFailed,omitempty"`
}

// LayerSnapshot 图层快照
type LayerSnapshot struct {
	Spec     LayerSpec `json:"spec"`
	Visible  bool      `json:"visible"`
	Features []Feature `json:"features"`
}

// Session 单个地产的编辑会话，是一致性单元
//
// 同一会话的所有操作串行执行；排队中的操作可以通过 ctx 取消，已开始的编辑总会执行完毕。
type Session struct {
	ID string

	sem        chan struct{}
	store      *Store
	kernel     geokernel.Kernel
	validator  *Validator
	propagator *Propagator
	auditor    *CoverageAuditor
	areas      *AreaAggregator
	strict     bool
}

// Option 会话选项
type Option func(*Session)

// WithStrictInvariants 每次提交后执行一致性检查并记录日志
func WithStrictInvariants(strict bool) Option {
	return func(s *Session) { s.strict = strict }
}

// NewSession 创建空会话
func NewSession(id string, k geokernel.Kernel, opts ...Option) *Session {
	s := &Session{
		ID:         id,
		sem:        make(chan struct{}, 1),
		store:      NewStore(),
		kernel:     k,
		validator:  NewValidator(k),
		propagator: NewPropagator(k),
		auditor:    NewCoverageAuditor(k),
		areas:      NewAreaAggregator(k),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RestoreSession 从已保存的要素恢复会话，恢复后的状态必须通过一致性检查
func RestoreSession(id string, k geokernel.Kernel, features []Feature, visibility map[Category]bool, opts ...Option) (*Session, error) {
	s := NewSession(id, k, opts...)
	if err := s.store.Load(features); err != nil {
		return nil, err
	}
	for c, visible := range visibility {
		if !c.Valid() {
			continue
		}
		if err := s.store.SetVisible(c, visible); err != nil {
			return nil, err
		}
	}
	if err := s.store.CheckInvariants(k); err != nil {
		return nil, fmt.Errorf("restore session %s: %w", id, err)
	}
	return s, nil
}

func (s *Session) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) release() { <-s.sem }

// SubmitFeature 提交新要素
func (s *Session) SubmitFeature(ctx context.Context, c Category, g orb.Geometry) (Outcome, error) {
	if err := s.acquire(ctx); err != nil {
		return Outcome{}, err
	}
	defer s.release()

	verdict, err := s.validator.Validate(c, g, s.store)
	if err != nil {
		return Outcome{}, err
	}
	if !verdict.Accepted {
		return Outcome{Verdict: verdict}, nil
	}

	var cs ChangeSet
	spec, _ := c.Spec()
	if !spec.AllowMultiple {
		// 单要素图层：新要素替换旧要素
		cs = append(cs, s.store.Clear(c)...)
	}
	change := s.store.Insert(c, verdict.Geometry, stateFor(verdict))
	cs = append(cs, change)
	return s.commit(verdict, change, cs)
}

// UpdateFeature 用户编辑已有要素，按新要素重新校验，id 保持不变
func (s *Session) UpdateFeature(ctx context.Context, c Category, id FeatureID, g orb.Geometry) (Outcome, error) {
	if err := s.acquire(ctx); err != nil {
		return Outcome{}, err
	}
	defer s.release()

	if _, ok := s.store.Get(c, id); !ok {
		return Outcome{}, fmt.Errorf("%w: %s/%s", ErrFeatureNotFound, c, id)
	}
	verdict, err := s.validator.Validate(c, g, s.store)
	if err != nil {
		return Outcome{}, err
	}
	if !verdict.Accepted {
		return Outcome{Verdict: verdict}, nil
	}
	change, err := s.store.Replace(c, id, verdict.Geometry, stateFor(verdict))
	if err != nil {
		return Outcome{}, err
	}
	return s.commit(verdict, change, ChangeSet{change})
}

func stateFor(v Verdict) Lifecycle {
	if v.Clipped {
		return Clipped
	}
	return Created
}

// commit 写入后的级联处理，调用方持有会话锁。
// 级联写入失败时返回已生效的变更和错误，存储与调用方记录的状态可能不一致，调用方应丢弃会话。
func (s *Session) commit(verdict Verdict, change Change, cs ChangeSet) (Outcome, error) {
	out := Outcome{Verdict: verdict}
	if f, ok := s.store.Get(change.Category, change.ID); ok {
		out.Feature = &f
	}

	if change.Category == TopLandCover() {
		res := s.propagator.Propagate(change.Category, verdict.Geometry, s.store)
		applied, err := res.Apply(s.store)
		cs = append(cs, applied...)
		if err != nil {
			out.Changes = cs
			return out, fmt.Errorf("apply cascade: %w", err)
		}
		out.CascadeFailed = res.Failed
		for _, f := range res.Failed {
			log.Printf("[landuse] session %s: cascade skipped %s/%s: %v", s.ID, f.Category, f.ID, f.Err)
		}
	}
	out.Changes = cs
	s.checkStrict()
	return out, nil
}

func (s *Session) checkStrict() {
	if !s.strict {
		return
	}
	if err := s.store.CheckInvariants(s.kernel); err != nil {
		log.Printf("[landuse] session %s: invariant check failed: %v", s.ID, err)
	}
}

// RemoveFeature 删除单个要素。删除红线会删除所有图层，必须由调用方先取得用户确认。
func (s *Session) RemoveFeature(ctx context.Context, c Category, id FeatureID, confirmed bool) (ChangeSet, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
	if _, ok := s.store.Get(c, id); !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrFeatureNotFound, c, id)
	}
	if c == PropertyBoundary {
		if !confirmed {
			return nil, ErrConfirmationRequired
		}
		cs := s.store.ClearAll()
		s.checkStrict()
		return cs, nil
	}
	change, err := s.store.Delete(c, id)
	if err != nil {
		return nil, err
	}
	s.checkStrict()
	return ChangeSet{change}, nil
}

// ClearCategory 清空图层。清空红线等同于删除红线。
func (s *Session) ClearCategory(ctx context.Context, c Category, confirmed bool) (ChangeSet, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
	if c == PropertyBoundary {
		if !confirmed {
			return nil, ErrConfirmationRequired
		}
		return s.store.ClearAll(), nil
	}
	return s.store.Clear(c), nil
}

// AuditCoverage 按需检查覆盖情况，不修改会话
func (s *Session) AuditCoverage(ctx context.Context) (CoverageReport, error) {
	if err := s.acquire(ctx); err != nil {
		return CoverageReport{}, err
	}
	defer s.release()
	return s.auditor.Audit(s.store)
}

// GetAreaTotals 各图层面积（公顷）
func (s *Session) GetAreaTotals(ctx context.Context) (map[Category]float64, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()
	return s.areas.Totals(s.store)
}

// SetLayerVisibility 设置图层可见性
func (s *Session) SetLayerVisibility(ctx context.Context, c Category, visible bool) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	if !c.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
	return s.store.SetVisible(c, visible)
}

// Snapshot 按显示顺序返回全部图层
func (s *Session) Snapshot(ctx context.Context) ([]LayerSnapshot, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()
	var out []LayerSnapshot
	for _, c := range Categories() {
		l := s.store.layer(c)
		out = append(out, LayerSnapshot{Spec: l.Spec, Visible: l.visible, Features: s.store.Features(c)})
	}
	return out, nil
}

// Visibility 各图层可见性
func (s *Session) Visibility(ctx context.Context) (map[Category]bool, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()
	out := make(map[Category]bool, len(Layers))
	for _, c := range Categories() {
		out[c] = s.store.Visible(c)
	}
	return out, nil
}

// CheckInvariants 执行一致性检查
func (s *Session) CheckInvariants(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	return s.store.CheckInvariants(s.kernel)
}
