package stabilization

import (
	"fmt"
	"log"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

// positionOnlyConfig enables stabilization of the position attribute only
func positionOnlyConfig(historyDepth int, attributeConfig AttributeConfig) *Config {
	cfg := &Config{
		Enable:       true,
		HistoryDepth: historyDepth,
	}
	attributeConfig.Enable = true
	cfg.AttributeConfigs[PositionIndex] = attributeConfig
	return cfg
}

func newTestEngine(t *testing.T, cfg *Config) *Engine {
	t.Helper()
	engine, err := NewEngineWith(cfg, 640, 480)
	if err != nil {
		t.Fatal(err)
	}
	return engine
}

func TestExecuteStabilizationKeepsObjectCount(t *testing.T) {
	for historyDepth := 1; historyDepth <= MaxHistory; historyDepth++ {
		engine := newTestEngine(t, positionOnlyConfig(historyDepth, AttributeConfig{Threshold: 100, StateCount: 2, MovingThreshold: 100, MovingLinkFactor: 1}))
		for numObjects := 0; numObjects <= MaxObjects; numObjects++ {
			objects := make([]ObjectData, numObjects)
			for i := range objects {
				objects[i] = NewObjectData(0, int32(30+60*i), int32(40+40*(i%3)), 40, 30)
			}
			frame := NewFrame(objects...)
			for iteration := 0; iteration < 4; iteration++ {
				output, err := engine.ExecuteStabilization(&frame)
				if err != nil {
					t.Fatalf("depth %d, objects %d: %v", historyDepth, numObjects, err)
				}
				if output.NumObjects != numObjects {
					t.Errorf("depth %d: incorrect number of objects: %d, expected: %d", historyDepth, output.NumObjects, numObjects)
				}
			}
			if engine.NumTracked() != numObjects {
				t.Errorf("depth %d: incorrect number of tracked objects: %d, expected: %d", historyDepth, engine.NumTracked(), numObjects)
			}
		}
	}
}

func TestExecuteStabilizationRejectsInvalidInput(t *testing.T) {
	var logged []string
	SetLogger(func(format string, v ...interface{}) {
		logged = append(logged, fmt.Sprintf(format, v...))
	})
	defer SetLogger(log.Printf)

	engine := newTestEngine(t, positionOnlyConfig(5, AttributeConfig{Threshold: 100}))
	frame := NewFrame(NewObjectData(1, 100, 100, 50, 50), NewObjectData(2, 300, 100, 50, 50))
	if _, err := engine.ExecuteStabilization(&frame); err != nil {
		t.Fatal(err)
	}
	before := engine.Snapshot()

	tooMany := make([]ObjectData, MaxObjects+1)
	for i := range tooMany {
		tooMany[i] = NewObjectData(uint32(i+1), int32(10*i), 10, 5, 5)
	}
	invalidFrame := NewFrame(tooMany...)
	_, err := engine.ExecuteStabilization(&invalidFrame)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Wrong error for too many objects: %v", err)
	}

	invalidFrame = NewFrame(NewObjectData(1, 100, 100, 50, 50))
	invalidFrame.Objects[0].NumAttributes = MaxObjectAttributes + 1
	_, err = engine.ExecuteStabilization(&invalidFrame)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Wrong error for too many attributes: %v", err)
	}

	_, err = engine.ExecuteStabilization(nil)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Wrong error for nil frame: %v", err)
	}

	for _, historyDepth := range []int{0, MaxHistory + 1} {
		if err := engine.SetConfig(positionOnlyConfig(historyDepth, AttributeConfig{})); err != nil {
			t.Fatal(err)
		}
		_, err = engine.ExecuteStabilization(&frame)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Wrong error for history depth %d: %v", historyDepth, err)
		}
	}

	if diff := cmp.Diff(before, engine.Snapshot()); diff != "" {
		t.Errorf("History must not change on rejected input (-before +after):\n%s", diff)
	}
	if len(logged) == 0 {
		t.Errorf("Rejected input must be logged")
	}
}

func TestInitializeRejectsInvalidArguments(t *testing.T) {
	engine := NewEngine()
	if err := engine.Initialize(nil, 640, 480); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Wrong error for nil configuration: %v", err)
	}
	if err := engine.Initialize(&Config{Enable: true, HistoryDepth: 5}, -1, 480); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Wrong error for negative frame width: %v", err)
	}
	if err := engine.SetConfig(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Wrong error for nil configuration: %v", err)
	}
}

func TestInitializeClearsHistory(t *testing.T) {
	cfg := positionOnlyConfig(5, AttributeConfig{Threshold: 100})
	engine := newTestEngine(t, cfg)
	sessionID := engine.SessionID()
	frame := NewFrame(NewObjectData(1, 100, 100, 50, 50))
	if _, err := engine.ExecuteStabilization(&frame); err != nil {
		t.Fatal(err)
	}
	if err := engine.Initialize(cfg, 320, 240); err != nil {
		t.Fatal(err)
	}
	if engine.NumTracked() != 0 {
		t.Errorf("Initialize must clear history, got %d objects", engine.NumTracked())
	}
	if engine.SessionID() == sessionID {
		t.Errorf("Initialize must start new session")
	}
	width, height := engine.FrameSize()
	if width != 320 || height != 240 {
		t.Errorf("Wrong frame size: %dx%d, expected: %dx%d", width, height, 320, 240)
	}
}

func TestSetConfigKeepsHistory(t *testing.T) {
	engine := newTestEngine(t, positionOnlyConfig(5, AttributeConfig{Threshold: 100}))
	frame := NewFrame(NewObjectData(1, 100, 100, 50, 50))
	if _, err := engine.ExecuteStabilization(&frame); err != nil {
		t.Fatal(err)
	}
	cfg := positionOnlyConfig(3, AttributeConfig{Threshold: 50})
	if err := engine.SetConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if engine.NumTracked() != 1 {
		t.Errorf("SetConfig must keep history, got %d objects", engine.NumTracked())
	}
	if diff := cmp.Diff(*cfg, engine.GetConfig()); diff != "" {
		t.Errorf("Wrong configuration (-want +got):\n%s", diff)
	}
}

func TestDisabledEnginePassesThrough(t *testing.T) {
	cfg := positionOnlyConfig(5, AttributeConfig{Threshold: 100})
	cfg.Enable = false
	engine := newTestEngine(t, cfg)
	frame := NewFrame(NewObjectData(0, 300, 100, 50, 50), NewObjectData(0, 100, 100, 50, 50))
	output, err := engine.ExecuteStabilization(&frame)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(frame, output); diff != "" {
		t.Errorf("Disabled engine must pass frame through (-want +got):\n%s", diff)
	}
	if engine.NumTracked() != 0 {
		t.Errorf("Disabled engine must not track objects, got %d", engine.NumTracked())
	}
}

func TestExecuteStabilizationConvergence(t *testing.T) {
	engine := newTestEngine(t, positionOnlyConfig(5, AttributeConfig{
		Mode:             ModeEqual,
		MinStableState:   2,
		Threshold:        100,
		StateCount:       2,
		Filter:           NoFilterParams{},
		MovingThreshold:  1000,
		MovingLinkFactor: 1,
	}))
	inputs := []Entry{NewEntry(100, 100)}
	for i := 0; i < 13; i++ {
		inputs = append(inputs, NewEntry(200, 100))
	}
	correctStates := []State{
		StateStable, StateStable,
		StateUnstable, StateUnstable, StateUnstable,
		StateStabilizing, StateStabilizing, StateStabilizing,
		StateStable, StateStable, StateStable, StateStable, StateStable, StateStable,
	}
	states := make([]State, 0, len(inputs))
	var output Frame
	for _, input := range inputs {
		frame := NewFrame(NewObjectData(5, input.Data0, input.Data1, 50, 50))
		var err error
		output, err = engine.ExecuteStabilization(&frame)
		if err != nil {
			t.Fatal(err)
		}
		states = append(states, engine.Snapshot()[0].Attributes[PositionIndex].State)
	}
	if diff := cmp.Diff(correctStates, states); diff != "" {
		t.Errorf("Wrong state sequence (-want +got):\n%s", diff)
	}
	if !output.Objects[0].Position().Equal(NewEntry(200, 100)) {
		t.Errorf("Wrong stable position: %v, correct answer: %v", output.Objects[0].Position(), NewEntry(200, 100))
	}

	// Fixed point
	for i := 0; i < 5; i++ {
		frame := NewFrame(NewObjectData(5, 200, 100, 50, 50))
		next, err := engine.ExecuteStabilization(&frame)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(output, next); diff != "" {
			t.Errorf("Stable output must not change (-want +got):\n%s", diff)
		}
	}
}

func TestExecuteStabilizationWithinThresholdAverage(t *testing.T) {
	engine := newTestEngine(t, positionOnlyConfig(5, AttributeConfig{
		Mode:             ModeWithinThreshold,
		MinStableState:   1,
		StableThreshold:  10,
		Threshold:        20,
		StateCount:       1,
		Filter:           AverageParams{HistoryLength: 3, MovingHistoryLength: 3},
		MovingThreshold:  100,
		MovingLinkFactor: 1,
	}))
	centers := []Entry{
		NewEntry(100, 100), NewEntry(110, 100), NewEntry(111, 100), NewEntry(109, 100),
		NewEntry(110, 101), NewEntry(111, 100), NewEntry(109, 100),
	}
	correctStates := []State{
		StateStable, StateStable,
		StateUnstable, StateUnstable,
		StateStabilizing, StateStabilizing,
		StateStable,
	}
	states := make([]State, 0, len(centers))
	var output Frame
	for _, center := range centers {
		frame := NewFrame(NewObjectData(7, center.Data0, center.Data1, 50, 50))
		var err error
		output, err = engine.ExecuteStabilization(&frame)
		if err != nil {
			t.Fatal(err)
		}
		states = append(states, engine.Snapshot()[0].Attributes[PositionIndex].State)
	}
	if diff := cmp.Diff(correctStates, states); diff != "" {
		t.Errorf("Wrong state sequence (-want +got):\n%s", diff)
	}
	// mean of the last 3 samples is (110, 100)
	if position := output.Objects[0].Position(); !position.Equal(NewEntry(110, 100)) {
		t.Errorf("Wrong stable position: %v, correct answer: %v", position, NewEntry(110, 100))
	}
	if output.Objects[0].ID != 7 {
		t.Errorf("Wrong identifier: %d, expected: %d", output.Objects[0].ID, 7)
	}
}

func TestExecuteStabilizationIdentifierStickiness(t *testing.T) {
	engine := newTestEngine(t, positionOnlyConfig(10, AttributeConfig{Threshold: 100, StateCount: 2, MovingThreshold: 100, MovingLinkFactor: 1}))
	for k := 0; k < 8; k++ {
		// Objects cross each other
		frame := NewFrame(
			NewObjectData(9, int32(500-50*k), 200, 40, 40),
			NewObjectData(3, int32(100+50*k), 200, 40, 40),
		)
		frame.Objects[0].Payload = "nine"
		frame.Objects[1].Payload = "three"
		output, err := engine.ExecuteStabilization(&frame)
		if err != nil {
			t.Fatal(err)
		}
		snapshot := engine.Snapshot()
		if len(snapshot) != 2 {
			t.Fatalf("incorrect number of objects: %d, expected: %d", len(snapshot), 2)
		}
		if snapshot[0].ID != 3 || snapshot[1].ID != 9 {
			t.Errorf("frame %d: wrong tracking order: %d %d", k, snapshot[0].ID, snapshot[1].ID)
		}
		for _, obj := range snapshot {
			if obj.Attributes[PositionIndex].NumEntries != k+1 {
				t.Errorf("frame %d: object %d has %d samples, expected: %d", k, obj.ID, obj.Attributes[PositionIndex].NumEntries, k+1)
			}
		}
		if output.Objects[0].Payload != "three" || output.Objects[1].Payload != "nine" {
			t.Errorf("frame %d: payload must follow object: %v %v", k, output.Objects[0].Payload, output.Objects[1].Payload)
		}
	}
}

func TestExecuteStabilizationNewLowerIdentifier(t *testing.T) {
	engine := newTestEngine(t, positionOnlyConfig(10, AttributeConfig{Threshold: 100, StateCount: 2, MovingThreshold: 100, MovingLinkFactor: 1}))
	for k := 0; k < 3; k++ {
		frame := NewFrame(NewObjectData(2, 100, 100, 40, 40))
		if _, err := engine.ExecuteStabilization(&frame); err != nil {
			t.Fatal(err)
		}
	}
	// New object sorts before the tracked one by identifier but lies below it
	frame := NewFrame(NewObjectData(2, 100, 100, 40, 40), NewObjectData(1, 300, 300, 40, 40))
	output, err := engine.ExecuteStabilization(&frame)
	if err != nil {
		t.Fatal(err)
	}
	snapshot := engine.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("incorrect number of objects: %d, expected: %d", len(snapshot), 2)
	}
	correctSamples := map[uint32]int{1: 1, 2: 4}
	for i, obj := range snapshot {
		if obj.ID != uint32(i+1) {
			t.Errorf("Wrong tracking order at %d: %d", i, obj.ID)
		}
		if obj.Attributes[PositionIndex].NumEntries != correctSamples[obj.ID] {
			t.Errorf("Object %d has %d samples, expected: %d", obj.ID, obj.Attributes[PositionIndex].NumEntries, correctSamples[obj.ID])
		}
	}
	if !output.Objects[1].Position().Equal(NewEntry(100, 100)) {
		t.Errorf("Wrong position of tracked object: %v", output.Objects[1].Position())
	}

	// Identifier greater than every tracked one replaces them when they are gone
	frame = NewFrame(NewObjectData(3, 100, 100, 40, 40))
	if _, err := engine.ExecuteStabilization(&frame); err != nil {
		t.Fatal(err)
	}
	snapshot = engine.Snapshot()
	if len(snapshot) != 1 || snapshot[0].ID != 3 || snapshot[0].Attributes[PositionIndex].NumEntries != 1 {
		t.Errorf("Lost objects must be dropped and new one started: %+v", snapshot)
	}
}

func TestExecuteStabilizationEmptyFrameTruncates(t *testing.T) {
	engine := newTestEngine(t, positionOnlyConfig(5, AttributeConfig{Threshold: 100}))
	frame := NewFrame(
		NewObjectData(0, 100, 100, 40, 40),
		NewObjectData(0, 300, 100, 40, 40),
		NewObjectData(0, 200, 300, 40, 40),
	)
	for i := 0; i < 3; i++ {
		if _, err := engine.ExecuteStabilization(&frame); err != nil {
			t.Fatal(err)
		}
	}
	if engine.NumTracked() != 3 {
		t.Fatalf("incorrect number of tracked objects: %d, expected: %d", engine.NumTracked(), 3)
	}

	empty := NewFrame()
	output, err := engine.ExecuteStabilization(&empty)
	if err != nil {
		t.Fatal(err)
	}
	if output.NumObjects != 0 || engine.NumTracked() != 0 {
		t.Errorf("Empty frame must truncate history: output %d, tracked %d", output.NumObjects, engine.NumTracked())
	}

	frame = NewFrame(NewObjectData(0, 100, 100, 40, 40))
	if _, err := engine.ExecuteStabilization(&frame); err != nil {
		t.Fatal(err)
	}
	snapshot := engine.Snapshot()
	if len(snapshot) != 1 || snapshot[0].Attributes[PositionIndex].NumEntries != 1 {
		t.Errorf("Object after empty frame must be fresh: %+v", snapshot)
	}
}

func TestExecuteStabilizationSwappedNeighbours(t *testing.T) {
	engine := newTestEngine(t, positionOnlyConfig(5, AttributeConfig{Threshold: 100}))
	frame := NewFrame(NewObjectData(0, 100, 100, 40, 40), NewObjectData(0, 150, 100, 40, 40))
	if _, err := engine.ExecuteStabilization(&frame); err != nil {
		t.Fatal(err)
	}
	// Left object jumps right of the other one, both stay within 40px of their previous centers
	frame = NewFrame(NewObjectData(0, 130, 100, 40, 40), NewObjectData(0, 120, 100, 40, 40))
	if _, err := engine.ExecuteStabilization(&frame); err != nil {
		t.Fatal(err)
	}
	snapshot := engine.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("incorrect number of objects: %d, expected: %d", len(snapshot), 2)
	}
	for i, obj := range snapshot {
		if obj.Attributes[PositionIndex].NumEntries != 2 {
			t.Errorf("object %d must be matched with its history, has %d samples", i, obj.Attributes[PositionIndex].NumEntries)
		}
	}
}

func TestExecuteStabilizationInsertsAndDropsObjects(t *testing.T) {
	engine := newTestEngine(t, positionOnlyConfig(5, AttributeConfig{Threshold: 100}))
	frame := NewFrame(NewObjectData(0, 100, 100, 40, 40))
	if _, err := engine.ExecuteStabilization(&frame); err != nil {
		t.Fatal(err)
	}

	// New object above the tracked one
	frame = NewFrame(NewObjectData(0, 100, 100, 40, 40), NewObjectData(0, 400, 20, 40, 40))
	if _, err := engine.ExecuteStabilization(&frame); err != nil {
		t.Fatal(err)
	}
	snapshot := engine.Snapshot()
	samples := []int{snapshot[0].Attributes[PositionIndex].NumEntries, snapshot[1].Attributes[PositionIndex].NumEntries}
	if diff := cmp.Diff([]int{1, 2}, samples); diff != "" {
		t.Errorf("Wrong samples after insertion (-want +got):\n%s", diff)
	}

	// Upper object disappears
	frame = NewFrame(NewObjectData(0, 100, 100, 40, 40))
	if _, err := engine.ExecuteStabilization(&frame); err != nil {
		t.Fatal(err)
	}
	snapshot = engine.Snapshot()
	if len(snapshot) != 1 || snapshot[0].Attributes[PositionIndex].NumEntries != 3 {
		t.Errorf("Remaining object must keep its history: %+v", snapshot)
	}
}

func TestExecuteStabilizationClampsOutput(t *testing.T) {
	engine := newTestEngine(t, positionOnlyConfig(5, AttributeConfig{Threshold: 100}))
	frame := NewFrame(NewObjectData(0, 10, 10, 40, 40), NewObjectData(0, 630, 470, 40, 40))
	original := frame
	output, err := engine.ExecuteStabilization(&frame)
	if err != nil {
		t.Fatal(err)
	}
	correctRects := []Rectangle{
		{Left: 0, Top: 0, Width: 30, Height: 30},
		{Left: 610, Top: 450, Width: 30, Height: 30},
	}
	for i, correct := range correctRects {
		if rect := output.Objects[i].Rect(); rect != correct {
			t.Errorf("Wrong rectangle %d: %+v, correct answer: %+v", i, rect, correct)
		}
	}
	if diff := cmp.Diff(original, frame); diff != "" {
		t.Errorf("Input frame must not be modified (-want +got):\n%s", diff)
	}
}

func TestDebugLogger(t *testing.T) {
	calls := 0
	SetDebugLogger(func(format string, v ...interface{}) {
		calls++
	})
	defer SetDebugLogger(nil)

	engine := newTestEngine(t, positionOnlyConfig(5, AttributeConfig{Threshold: 100, StateCount: 1, MovingThreshold: 100, MovingLinkFactor: 1}))
	for _, x := range []int32{100, 300, 300, 300} {
		frame := NewFrame(NewObjectData(1, x, 100, 50, 50), NewObjectData(2, 500, 300, 50, 50))
		if _, err := engine.ExecuteStabilization(&frame); err != nil {
			t.Fatal(err)
		}
	}
	if calls == 0 {
		t.Errorf("Debug logger must be called")
	}
}
