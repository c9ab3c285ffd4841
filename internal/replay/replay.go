package replay

import (
	"context"
	"encoding/csv"
	"io"
	"sort"
	"strconv"

	"github.com/LdDl/bbox-stabilization/internal/framelog"
	"github.com/LdDl/bbox-stabilization/internal/jitter"
	"github.com/LdDl/bbox-stabilization/stabilization"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var inputHeader = []string{"frame", "id", "cx", "cy", "w", "h"}

var outputHeader = []string{
	"frame", "object", "id",
	"raw_left", "raw_top", "raw_width", "raw_height",
	"left", "top", "width", "height",
	"position_state", "size_state",
}

// Row is a single detection of the input file
type Row struct {
	Frame  int
	ID     uint32
	Center stabilization.Entry
	Size   stabilization.Entry
}

// IndexedFrame is a frame and its number in the input sequence
type IndexedFrame struct {
	Index int
	Frame stabilization.Frame
}

// ReadRows parses semicolon separated detections. Header line is optional.
func ReadRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = len(inputHeader)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "Can't read detections")
	}
	if len(records) > 0 && records[0][0] == inputHeader[0] {
		records = records[1:]
	}
	rows := make([]Row, 0, len(records))
	for i, record := range records {
		var values [6]int64
		for k, field := range record {
			values[k], err = strconv.ParseInt(field, 10, 32)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: bad %s", i+1, inputHeader[k])
			}
		}
		if values[0] < 0 || values[1] < 0 {
			return nil, errors.Errorf("line %d: frame and id must not be negative", i+1)
		}
		rows = append(rows, Row{
			Frame:  int(values[0]),
			ID:     uint32(values[1]),
			Center: stabilization.NewEntry(int32(values[2]), int32(values[3])),
			Size:   stabilization.NewEntry(int32(values[4]), int32(values[5])),
		})
	}
	return rows, nil
}

// GroupFrames builds frames from rows. A run of missing frame numbers becomes a single empty frame:
// it drops every tracked object and further empty frames would change nothing.
// Payload of every object is its index in the frame.
func GroupFrames(rows []Row) ([]IndexedFrame, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Frame < sorted[j].Frame
	})
	var frames []IndexedFrame
	for _, row := range sorted {
		if len(frames) == 0 || frames[len(frames)-1].Index != row.Frame {
			if len(frames) > 0 && row.Frame > frames[len(frames)-1].Index+1 {
				frames = append(frames, IndexedFrame{Index: frames[len(frames)-1].Index + 1})
			}
			frames = append(frames, IndexedFrame{Index: row.Frame})
		}
		frame := &frames[len(frames)-1].Frame
		if frame.NumObjects >= stabilization.MaxObjects {
			return nil, errors.Errorf("frame %d: more than %d objects", row.Frame, stabilization.MaxObjects)
		}
		obj := stabilization.NewObjectData(row.ID, row.Center.Data0, row.Center.Data1, row.Size.Data0, row.Size.Data1)
		obj.Payload = frame.NumObjects
		frame.Objects[frame.NumObjects] = obj
		frame.NumObjects++
	}
	return frames, nil
}

// Run feeds frames to the engine and pairs every stabilized object with its raw detection.
// When store is not nil records of every frame are persisted under the engine's session.
func Run(ctx context.Context, engine *stabilization.Engine, frames []IndexedFrame, store *framelog.Store) ([]framelog.ObjectRecord, error) {
	var sessionID uuid.UUID
	if store != nil {
		sessionID = engine.SessionID()
		width, height := engine.FrameSize()
		if err := store.CreateSession(ctx, sessionID, width, height, engine.GetConfig()); err != nil {
			return nil, err
		}
	}
	var all []framelog.ObjectRecord
	for i := range frames {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		raw := &frames[i].Frame
		stabilized, err := engine.ExecuteStabilization(raw)
		if err != nil {
			return all, errors.Wrapf(err, "frame %d", frames[i].Index)
		}
		records, err := framelog.RecordsFromFrames(frames[i].Index, raw, &stabilized, engine.Snapshot())
		if err != nil {
			return all, err
		}
		if store != nil && len(records) > 0 {
			if err := store.RecordObjects(ctx, sessionID, records); err != nil {
				return all, err
			}
		}
		all = append(all, records...)
	}
	return all, nil
}

// WriteRecords writes records as semicolon separated values
func WriteRecords(w io.Writer, records []framelog.ObjectRecord) error {
	writer := csv.NewWriter(w)
	writer.Comma = ';'
	if err := writer.Write(outputHeader); err != nil {
		return errors.Wrap(err, "Can't write header")
	}
	for _, record := range records {
		line := []string{
			strconv.Itoa(record.FrameIndex),
			strconv.Itoa(record.ObjectIndex),
			strconv.FormatUint(uint64(record.ObjectID), 10),
		}
		line = append(line, rectFields(record.Raw)...)
		line = append(line, rectFields(record.Stable)...)
		line = append(line, record.PositionState.String(), record.SizeState.String())
		if err := writer.Write(line); err != nil {
			return errors.Wrap(err, "Can't write record")
		}
	}
	writer.Flush()
	return writer.Error()
}

func rectFields(rect stabilization.Rectangle) []string {
	return []string{
		strconv.Itoa(int(rect.Left)),
		strconv.Itoa(int(rect.Top)),
		strconv.Itoa(int(rect.Width)),
		strconv.Itoa(int(rect.Height)),
	}
}

// Observations converts records for jitter analysis
func Observations(records []framelog.ObjectRecord) []jitter.Observation {
	observations := make([]jitter.Observation, len(records))
	for i, record := range records {
		observations[i] = jitter.Observation{
			Frame:    record.FrameIndex,
			ObjectID: record.ObjectID,
			Slot:     record.ObjectIndex,
			Raw:      record.Raw,
			Stable:   record.Stable,
		}
	}
	return observations
}
