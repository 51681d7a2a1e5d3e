package core

import "testing"

func TestMetricsFPSRollover(t *testing.T) {
	m := NewMetrics()
	// 125ms frames are exact in binary floating point
	for i := 0; i < 8; i++ {
		if m.Update(0.125) {
			t.Fatalf("frame %d: rolled over before one second", i)
		}
	}
	if !m.Update(0.125) {
		t.Fatalf("ninth frame: expected rollover")
	}
	if m.FPS() != 9 {
		t.Errorf("fps: expected 9, got %v", m.FPS())
	}
}

func TestMetricsFrameTimeAverage(t *testing.T) {
	m := NewMetrics()
	if m.FrameTime() != 0 {
		t.Errorf("frame time before a full window: expected 0, got %v", m.FrameTime())
	}
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.125)
	}
	if m.FrameTime() != 125 {
		t.Errorf("frame time: expected 125ms, got %v", m.FrameTime())
	}
}
