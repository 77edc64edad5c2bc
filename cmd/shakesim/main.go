// shakesim: replays a recorded motion trace against a running miniapp host
//
// Trace format, one sample per line:
//
//	t_ms,x,y,z[,gravity]
//
// Empty axis fields are sent as null. Lines starting with # are skipped.
package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-miniapp/pkg/gesture"
	"github.com/teslashibe/go-miniapp/pkg/protocol"
)

var (
	url    = flag.String("url", "ws://localhost:8080/ws/miniapp", "Host websocket URL")
	trace  = flag.String("trace", "", "CSV trace file (default stdin)")
	preset = flag.String("preset", gesture.PresetMedium, "Sensitivity preset")
	fast   = flag.Bool("fast", false, "Send samples without waiting between them")
	linger = flag.Duration("linger", 500*time.Millisecond, "Wait this long for late shake events")
)

func main() {
	flag.Parse()

	in := io.Reader(os.Stdin)
	if *trace != "" {
		f, err := os.Open(*trace)
		if err != nil {
			fail(err)
		}
		defer f.Close()
		in = f
	}

	samples, err := readTrace(in)
	if err != nil {
		fail(err)
	}
	if len(samples) == 0 {
		fail(errors.New("trace has no samples"))
	}

	ws, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		fail(fmt.Errorf("dial %s: %w", *url, err))
	}
	defer ws.Close()

	shakes := make(chan gesture.ShakeEvent, 64)
	go readLoop(ws, shakes)

	hello, err := protocol.NewHelloMessage(protocol.HelloData{
		Platform:        "shakesim",
		MotionSupported: true,
		Preset:          *preset,
	})
	if err != nil {
		fail(err)
	}
	if err := send(ws, hello); err != nil {
		fail(err)
	}

	fmt.Printf("Replaying %d samples from %s\n", len(samples), *url)
	start := time.Now()
	first := samples[0].T
	for _, m := range samples {
		if !*fast {
			due := start.Add(time.Duration(m.T-first) * time.Millisecond)
			time.Sleep(time.Until(due))
		}
		msg, err := protocol.NewMessage(protocol.TypeMotion, m)
		if err != nil {
			fail(fmt.Errorf("sample t=%d: %w", m.T, err))
		}
		if err := send(ws, msg); err != nil {
			fail(err)
		}
	}

	count := 0
	timeout := time.After(*linger)
	for {
		select {
		case ev, ok := <-shakes:
			if !ok {
				fmt.Printf("Connection closed, %d shake(s)\n", count)
				return
			}
			count++
			fmt.Printf("shake #%d  magnitude=%.2f  t=%d\n", ev.Sequence, ev.Magnitude, ev.OccurredAtMillis)
		case <-timeout:
			fmt.Printf("Done, %d shake(s)\n", count)
			return
		}
	}
}

func readLoop(ws *websocket.Conn, shakes chan<- gesture.ShakeEvent) {
	defer close(shakes)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			continue
		}
		switch msg.Type {
		case protocol.TypeShake:
			if ev, err := msg.GetShakeEvent(); err == nil {
				shakes <- *ev
			}
		case protocol.TypeState:
			if st, err := msg.GetStateData(); err == nil {
				fmt.Printf("state: %s %s\n", st.State, st.Reason)
			}
		case protocol.TypeWelcome:
			if w, err := msg.GetWelcomeData(); err == nil {
				cfg, _ := json.Marshal(w.Detector)
				fmt.Printf("session %s, preset %s %s\n", w.SessionID, w.Preset, cfg)
			}
		}
	}
}

func send(ws *websocket.Conn, msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	return ws.WriteMessage(websocket.TextMessage, data)
}

func readTrace(r io.Reader) ([]protocol.MotionData, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var out []protocol.MotionData
	for first := true; ; first = false {
		record, err := reader.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		m, err := parseRecord(record)
		if err != nil {
			// Tolerate a header row
			if first {
				continue
			}
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, m)
	}
}

func parseRecord(record []string) (protocol.MotionData, error) {
	if len(record) < 4 {
		return protocol.MotionData{}, fmt.Errorf("want t,x,y,z[,gravity], got %d fields", len(record))
	}
	t, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
	if err != nil {
		return protocol.MotionData{}, fmt.Errorf("bad t: %w", err)
	}
	m := protocol.MotionData{T: t}
	axes := []**float64{&m.X, &m.Y, &m.Z}
	for i, field := range record[1:4] {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return protocol.MotionData{}, fmt.Errorf("bad axis %d: %w", i, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return protocol.MotionData{}, fmt.Errorf("bad axis %d: %q is not finite", i, field)
		}
		*axes[i] = &v
	}
	if len(record) > 4 {
		if field := strings.TrimSpace(record[4]); field != "" {
			g, err := strconv.ParseBool(field)
			if err != nil {
				return protocol.MotionData{}, fmt.Errorf("bad gravity: %w", err)
			}
			m.Gravity = g
		}
	}
	return m, nil
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
