package storage

import (
	"testing"
	"time"
)

func TestFilterRecent(t *testing.T) {
	cutoff := time.Date(2025, 6, 23, 9, 0, 0, 0, time.UTC)

	objects := []Object{
		{Key: "old.mp3", LastModified: cutoff.Add(-time.Minute)},
		{Key: "boundary.mp3", LastModified: cutoff},
		{Key: "recent.mp3", LastModified: cutoff.Add(time.Minute)},
	}

	recent := FilterRecent(objects, cutoff)

	keys := make(map[string]bool, len(recent))
	for _, obj := range recent {
		keys[obj.Key] = true
	}

	if keys["old.mp3"] {
		t.Error("早于窗口的对象应被排除")
	}
	if !keys["boundary.mp3"] {
		t.Error("恰好在窗口边界的对象应被包含")
	}
	if !keys["recent.mp3"] {
		t.Error("窗口内的对象应被包含")
	}
	if len(recent) != 2 {
		t.Errorf("过滤结果数量 = %d, want 2", len(recent))
	}
}

func TestFilterRecentEmpty(t *testing.T) {
	if got := FilterRecent(nil, time.Now()); len(got) != 0 {
		t.Errorf("空输入应返回空结果, 实际 %d 个", len(got))
	}
}

func TestFilterRecentPreservesOrder(t *testing.T) {
	cutoff := time.Now().Add(-time.Hour)

	// 列举顺序按键名而不是时间，过滤不得重排
	objects := []Object{
		{Key: "a.mp3", LastModified: time.Now()},
		{Key: "b.mp3", LastModified: time.Now().Add(-time.Minute)},
		{Key: "c.mp3", LastModified: time.Now().Add(-time.Second)},
	}

	recent := FilterRecent(objects, cutoff)
	if len(recent) != 3 {
		t.Fatalf("过滤结果数量 = %d, want 3", len(recent))
	}
	for i, want := range []string{"a.mp3", "b.mp3", "c.mp3"} {
		if recent[i].Key != want {
			t.Errorf("第 %d 个对象 = %s, want %s", i, recent[i].Key, want)
		}
	}
}
