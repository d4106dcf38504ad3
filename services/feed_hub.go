package services

import (
	"log"
	"sync"
	"time"

	"github.com/GrainArc/LandMap/landuse"
)

// FeedMessage 推送给订阅者的变更消息
type FeedMessage struct {
	Type       string          `json:"type"`
	PropertyID string          `json:"propertyId"`
	Changes    []ChangeMessage `json:"changes,omitempty"`
	Message    string          `json:"message,omitempty"`
	Timestamp  int64           `json:"timestamp"`
}

// ChangeMessage 单个变更，几何为 GeoJSON
type ChangeMessage struct {
	Kind     landuse.ChangeKind `json:"kind"`
	Category landuse.Category   `json:"category"`
	ID       landuse.FeatureID  `json:"id"`
	State    landuse.Lifecycle  `json:"state"`
	Geometry interface{}        `json:"geometry,omitempty"`
}

// feedBuffer 每个订阅者的缓冲，写满后丢弃消息
const feedBuffer = 32

// FeedHub 按地产分发变更消息
type FeedHub struct {
	mutex       sync.RWMutex
	subscribers map[string]map[chan FeedMessage]struct{}
}

func NewFeedHub() *FeedHub {
	return &FeedHub{subscribers: make(map[string]map[chan FeedMessage]struct{})}
}

// Subscribe 订阅地产的变更，返回的函数用于取消订阅
func (h *FeedHub) Subscribe(propertyID string) (<-chan FeedMessage, func()) {
	ch := make(chan FeedMessage, feedBuffer)
	h.mutex.Lock()
	if h.subscribers[propertyID] == nil {
		h.subscribers[propertyID] = make(map[chan FeedMessage]struct{})
	}
	h.subscribers[propertyID][ch] = struct{}{}
	h.mutex.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mutex.Lock()
			defer h.mutex.Unlock()
			subs := h.subscribers[propertyID]
			if _, ok := subs[ch]; !ok {
				// 已被 Close 关闭
				return
			}
			delete(subs, ch)
			if len(subs) == 0 {
				delete(h.subscribers, propertyID)
			}
			close(ch)
		})
	}
}

// Publish 发送消息，不阻塞慢订阅者
func (h *FeedHub) Publish(msg FeedMessage) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for ch := range h.subscribers[msg.PropertyID] {
		select {
		case ch <- msg:
		default:
			log.Printf("[feed] property %s: subscriber too slow, message dropped", msg.PropertyID)
		}
	}
}

// Close 关闭地产的所有订阅
func (h *FeedHub) Close(propertyID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for ch := range h.subscribers[propertyID] {
		close(ch)
	}
	delete(h.subscribers, propertyID)
}
