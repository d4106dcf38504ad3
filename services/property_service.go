package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/GrainArc/LandMap/geokernel"
	"github.com/GrainArc/LandMap/landuse"
	"github.com/GrainArc/LandMap/methods"
	"github.com/GrainArc/LandMap/models"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrPropertyNotFound = errors.New("property not found")

// PropertyService 管理地产编辑会话，负责持久化、审计记录和变更推送
//
// 同一地产的编辑与持久化在同一把锁内完成，数据库写入顺序与内存中的提交顺序一致。
// 持久化失败时内存会话被丢弃，下次访问从数据库重新恢复。
type PropertyService struct {
	db        *gorm.DB
	hub       *FeedHub
	newKernel func() geokernel.Kernel
	measure   geokernel.Kernel
	strict    bool

	mutex     sync.Mutex
	sessions  map[string]*propertyEntry
	restoring singleflight.Group
}

type propertyEntry struct {
	session *landuse.Session
	sem     chan struct{}
}

func (e *propertyEntry) acquire(ctx context.Context) error {
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *propertyEntry) release() { <-e.sem }

// ServiceOption 服务选项
type ServiceOption func(*PropertyService)

// WithKernelFactory 替换每个会话使用的几何内核
func WithKernelFactory(f func() geokernel.Kernel) ServiceOption {
	return func(s *PropertyService) { s.newKernel = f }
}

// WithStrictInvariants 会话每次提交后执行一致性检查
func WithStrictInvariants(strict bool) ServiceOption {
	return func(s *PropertyService) { s.strict = strict }
}

func NewPropertyService(db *gorm.DB, hub *FeedHub, opts ...ServiceOption) *PropertyService {
	if hub == nil {
		hub = NewFeedHub()
	}
	s := &PropertyService{
		db:        db,
		hub:       hub,
		newKernel: func() geokernel.Kernel { return geokernel.NewGeosKernel() },
		sessions:  make(map[string]*propertyEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.measure = s.newKernel()
	return s
}

func (s *PropertyService) Hub() *FeedHub { return s.hub }

// CreateProperty 创建地产和空会话
func (s *PropertyService) CreateProperty(ctx context.Context, name string) (models.Property, error) {
	p := models.Property{ID: uuid.New().String(), Name: name}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return p, fmt.Errorf("create property: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.sessions[p.ID] = s.newEntry(landuse.NewSession(p.ID, s.newKernel(), landuse.WithStrictInvariants(s.strict)))
	log.Printf("[property] created %s (%s)", p.ID, name)
	return p, nil
}

func (s *PropertyService) newEntry(session *landuse.Session) *propertyEntry {
	openSessions.Inc()
	return &propertyEntry{session: session, sem: make(chan struct{}, 1)}
}

// ListProperties 按创建时间列出地产
func (s *PropertyService) ListProperties(ctx context.Context) ([]models.Property, error) {
	var out []models.Property
	if err := s.db.WithContext(ctx).Order("created_at").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PropertyService) GetProperty(ctx context.Context, id string) (models.Property, error) {
	var p models.Property
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, fmt.Errorf("%w: %s", ErrPropertyNotFound, id)
	}
	return p, err
}

// DeleteProperty 删除地产及其所有要素，必须先取得用户确认
func (s *PropertyService) DeleteProperty(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return landuse.ErrConfirmationRequired
	}
	return s.withEntry(ctx, id, func(e *propertyEntry) error {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("property_id = ?", id).Delete(&models.LandFeature{}).Error; err != nil {
				return err
			}
			return tx.Where("id = ?", id).Delete(&models.Property{}).Error
		})
		if err != nil {
			return fmt.Errorf("delete property %s: %w", id, err)
		}
		s.evict(id)
		s.hub.Publish(FeedMessage{Type: "deleted", PropertyID: id})
		s.hub.Close(id)
		log.Printf("[property] deleted %s", id)
		return nil
	})
}

// entry 取得内存会话，不存在时从数据库恢复。
// 恢复在全局锁外进行，同一地产的并发恢复由 singleflight 合并。
func (s *PropertyService) entry(ctx context.Context, id string) (*propertyEntry, error) {
	if e, ok := s.lookup(id); ok {
		return e, nil
	}
	v, err, _ := s.restoring.Do(id, func() (interface{}, error) {
		if e, ok := s.lookup(id); ok {
			return e, nil
		}
		session, err := s.restore(context.WithoutCancel(ctx), id)
		if err != nil {
			return nil, err
		}
		s.mutex.Lock()
		defer s.mutex.Unlock()
		if e, ok := s.sessions[id]; ok {
			return e, nil
		}
		e := s.newEntry(session)
		s.sessions[id] = e
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*propertyEntry), nil
}

func (s *PropertyService) lookup(id string) (*propertyEntry, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	e, ok := s.sessions[id]
	return e, ok
}

func (s *PropertyService) restore(ctx context.Context, id string) (*landuse.Session, error) {
	p, err := s.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	var rows []models.LandFeature
	if err := s.db.WithContext(ctx).Where("property_id = ?", id).Order("feature_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load features of %s: %w", id, err)
	}

	features := make([]landuse.Feature, 0, len(rows))
	for _, row := range rows {
		c, err := landuse.ParseCategory(row.Category)
		if err != nil {
			return nil, fmt.Errorf("feature %s/%d: %w", id, row.FeatureID, err)
		}
		g, err := methods.WKBToGeometry(row.Geom)
		if err != nil {
			return nil, fmt.Errorf("feature %s/%d: decode geometry: %w", id, row.FeatureID, err)
		}
		features = append(features, landuse.Feature{
			ID:       landuse.FeatureID(row.FeatureID),
			Category: c,
			Geometry: g,
			State:    landuse.Lifecycle(row.State),
		})
	}

	visibility := make(map[landuse.Category]bool)
	if len(p.Visibility) > 0 {
		if err := json.Unmarshal(p.Visibility, &visibility); err != nil {
			log.Printf("[property] %s: ignoring unreadable visibility: %v", id, err)
		}
	}
	session, err := landuse.RestoreSession(id, s.newKernel(), features, visibility, landuse.WithStrictInvariants(s.strict))
	if err != nil {
		return nil, err
	}
	log.Printf("[property] restored %s with %d features", id, len(features))
	return session, nil
}

func (s *PropertyService) evict(id string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.sessions[id]; ok {
		delete(s.sessions, id)
		openSessions.Dec()
	}
}

func (s *PropertyService) current(id string, e *propertyEntry) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.sessions[id] == e
}

// withEntry 在地产锁内执行 fn；排队期间会话被丢弃时重新取得
func (s *PropertyService) withEntry(ctx context.Context, id string, fn func(e *propertyEntry) error) error {
	for {
		e, err := s.entry(ctx, id)
		if err != nil {
			return err
		}
		if err := e.acquire(ctx); err != nil {
			return err
		}
		if !s.current(id, e) {
			e.release()
			continue
		}
		defer e.release()
		return fn(e)
	}
}

// Submit 提交新要素
func (s *PropertyService) Submit(ctx context.Context, id, username string, c landuse.Category, g orb.Geometry) (landuse.Outcome, error) {
	defer observeDuration("submit", time.Now())
	var out landuse.Outcome
	err := s.withEntry(ctx, id, func(e *propertyEntry) error {
		var err error
		out, err = e.session.SubmitFeature(ctx, c, g)
		if err != nil {
			if len(out.Changes) > 0 {
				// 内存已部分变更，丢弃会话后从数据库恢复
				s.evict(id)
			}
			return err
		}
		if !out.Accepted {
			return nil
		}
		return s.commit(ctx, id, username, out.Message, out.Changes)
	})
	s.observeOutcome("submit", c, out, err)
	return out, err
}

// Update 编辑已有要素
func (s *PropertyService) Update(ctx context.Context, id, username string, c landuse.Category, fid landuse.FeatureID, g orb.Geometry) (landuse.Outcome, error) {
	defer observeDuration("update", time.Now())
	var out landuse.Outcome
	err := s.withEntry(ctx, id, func(e *propertyEntry) error {
		var err error
		out, err = e.session.UpdateFeature(ctx, c, fid, g)
		if err != nil {
			if len(out.Changes) > 0 {
				// 内存已部分变更，丢弃会话后从数据库恢复
				s.evict(id)
			}
			return err
		}
		if !out.Accepted {
			return nil
		}
		return s.commit(ctx, id, username, out.Message, out.Changes)
	})
	s.observeOutcome("update", c, out, err)
	return out, err
}

// Remove 删除要素，删除红线需要确认
func (s *PropertyService) Remove(ctx context.Context, id, username string, c landuse.Category, fid landuse.FeatureID, confirmed bool) (landuse.ChangeSet, error) {
	defer observeDuration("remove", time.Now())
	var cs landuse.ChangeSet
	err := s.withEntry(ctx, id, func(e *propertyEntry) error {
		var err error
		cs, err = e.session.RemoveFeature(ctx, c, fid, confirmed)
		if err != nil {
			return err
		}
		return s.commit(ctx, id, username, "", cs)
	})
	s.observeChanges("remove", c, err)
	return cs, err
}

// Clear 清空图层，清空红线需要确认
func (s *PropertyService) Clear(ctx context.Context, id, username string, c landuse.Category, confirmed bool) (landuse.ChangeSet, error) {
	defer observeDuration("clear", time.Now())
	var cs landuse.ChangeSet
	err := s.withEntry(ctx, id, func(e *propertyEntry) error {
		var err error
		cs, err = e.session.ClearCategory(ctx, c, confirmed)
		if err != nil {
			return err
		}
		return s.commit(ctx, id, username, "", cs)
	})
	s.observeChanges("clear", c, err)
	return cs, err
}

// SetVisibility 设置图层可见性并保存
func (s *PropertyService) SetVisibility(ctx context.Context, id string, c landuse.Category, visible bool) error {
	return s.withEntry(ctx, id, func(e *propertyEntry) error {
		if err := e.session.SetLayerVisibility(ctx, c, visible); err != nil {
			return err
		}
		vis, err := e.session.Visibility(ctx)
		if err != nil {
			return err
		}
		data, err := json.Marshal(vis)
		if err != nil {
			return err
		}
		err = s.db.WithContext(ctx).Model(&models.Property{}).Where("id = ?", id).Update("visibility", datatypes.JSON(data)).Error
		if err != nil {
			s.evict(id)
			return fmt.Errorf("save visibility of %s: %w", id, err)
		}
		s.hub.Publish(FeedMessage{Type: "visibility", PropertyID: id, Message: fmt.Sprintf("%s visible=%t", c, visible)})
		return nil
	})
}

// Snapshot 地产的全部图层
func (s *PropertyService) Snapshot(ctx context.Context, id string) ([]landuse.LayerSnapshot, error) {
	var out []landuse.LayerSnapshot
	err := s.withEntry(ctx, id, func(e *propertyEntry) error {
		var err error
		out, err = e.session.Snapshot(ctx)
		return err
	})
	return out, err
}

// Coverage 覆盖检查
func (s *PropertyService) Coverage(ctx context.Context, id string) (landuse.CoverageReport, error) {
	var out landuse.CoverageReport
	err := s.withEntry(ctx, id, func(e *propertyEntry) error {
		var err error
		out, err = e.session.AuditCoverage(ctx)
		return err
	})
	observeError(err)
	return out, err
}

// Areas 各图层面积（公顷）
func (s *PropertyService) Areas(ctx context.Context, id string) (map[landuse.Category]float64, error) {
	var out map[landuse.Category]float64
	err := s.withEntry(ctx, id, func(e *propertyEntry) error {
		var err error
		out, err = e.session.GetAreaTotals(ctx)
		return err
	})
	observeError(err)
	return out, err
}

// MeasureLength 测量线的球面长度
func (s *PropertyService) MeasureLength(line orb.Geometry, unit geokernel.LengthUnit) (float64, error) {
	length, err := s.measure.GeodesicLength(line, unit)
	observeError(err)
	return length, err
}

// MeasureArea 测量面的球面面积
func (s *PropertyService) MeasureArea(polygon orb.Geometry, unit geokernel.AreaUnit) (float64, error) {
	area, err := s.measure.GeodesicArea(polygon, unit)
	observeError(err)
	return area, err
}

// commit 持久化变更、写编辑记录并推送，调用方持有地产锁
func (s *PropertyService) commit(ctx context.Context, id, username, message string, cs landuse.ChangeSet) error {
	if len(cs) == 0 {
		return nil
	}
	if err := s.persist(ctx, id, username, message, cs); err != nil {
		s.evict(id)
		log.Printf("[property] %s: persist failed, session dropped: %v", id, err)
		return fmt.Errorf("persist property %s: %w", id, err)
	}
	s.hub.Publish(FeedMessage{Type: "changes", PropertyID: id, Changes: changeMessages(cs), Message: message})
	return nil
}

func (s *PropertyService) persist(ctx context.Context, id, username, message string, cs landuse.ChangeSet) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, ch := range cs {
			where := tx.Where("property_id = ? AND feature_id = ?", id, int64(ch.ID))
			switch ch.Kind {
			case landuse.ChangeAdded:
				geom, err := methods.GeoJsonToWKB(ch.New)
				if err != nil {
					return err
				}
				row := models.LandFeature{
					PropertyID: id,
					FeatureID:  int64(ch.ID),
					Category:   ch.Category.String(),
					State:      string(ch.State),
					Geom:       geom,
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			case landuse.ChangeModified:
				geom, err := methods.GeoJsonToWKB(ch.New)
				if err != nil {
					return err
				}
				err = where.Model(&models.LandFeature{}).Updates(map[string]interface{}{
					"geom":       geom,
					"state":      string(ch.State),
					"updated_at": now,
				}).Error
				if err != nil {
					return err
				}
			case landuse.ChangeRemoved:
				if err := where.Delete(&models.LandFeature{}).Error; err != nil {
					return err
				}
			}

			record := models.GeoRecord{
				PropertyID: id,
				Category:   ch.Category.String(),
				FeatureID:  int64(ch.ID),
				Username:   username,
				Type:       string(ch.Kind),
				State:      string(ch.State),
				Date:       now.Format("2006-01-02 15:04:05"),
				BZ:         message,
				OldGeojson: methods.GeometryJSON(ch.Old),
				NewGeojson: methods.GeometryJSON(ch.New),
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Property{}).Where("id = ?", id).Update("updated_at", now).Error
	})
}

// Records 地产的编辑记录，最新的在前
func (s *PropertyService) Records(ctx context.Context, id string, limit int) ([]models.GeoRecord, error) {
	if _, err := s.GetProperty(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	var out []models.GeoRecord
	err := s.db.WithContext(ctx).Where("property_id = ?", id).Order("id desc").Limit(limit).Find(&out).Error
	return out, err
}

func changeMessages(cs landuse.ChangeSet) []ChangeMessage {
	out := make([]ChangeMessage, 0, len(cs))
	for _, ch := range cs {
		msg := ChangeMessage{Kind: ch.Kind, Category: ch.Category, ID: ch.ID, State: ch.State}
		if ch.New != nil {
			msg.Geometry = geojson.NewGeometry(ch.New)
		}
		out = append(out, msg)
	}
	return out
}

func observeDuration(op string, start time.Time) {
	editDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (s *PropertyService) observeOutcome(op string, c landuse.Category, out landuse.Outcome, err error) {
	if err != nil {
		observeError(err)
		editTotal.WithLabelValues(op, c.String(), "error").Inc()
		return
	}
	if !out.Accepted {
		editTotal.WithLabelValues(op, c.String(), "rejected").Inc()
		rejectionTotal.WithLabelValues(string(out.Reason)).Inc()
		return
	}
	editTotal.WithLabelValues(op, c.String(), "accepted").Inc()
	if c == landuse.TopLandCover() {
		for _, ch := range out.Changes {
			if ch.Category != c {
				cascadeChanges.WithLabelValues(string(ch.Kind)).Inc()
			}
		}
	}
	for _, f := range out.CascadeFailed {
		observeError(f.Err)
	}
}

func (s *PropertyService) observeChanges(op string, c landuse.Category, err error) {
	result := "accepted"
	if err != nil {
		result = "error"
	}
	editTotal.WithLabelValues(op, c.String(), result).Inc()
}
