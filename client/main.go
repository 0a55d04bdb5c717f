package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/typerace/network"
)

// createRoom asks the server for a fresh room code.
func createRoom(host, userID string) (string, error) {
	body, _ := json.Marshal(map[string]string{"userId": userID})
	resp, err := http.Post("http://"+host+"/rooms", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create room: %s", resp.Status)
	}

	var created struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", err
	}
	return created.Code, nil
}

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgType string, payload interface{}) error {
	frame, err := network.Encode(msgType, payload)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, frame)
}

// parseCommand turns a stdin line into a protocol message.
func parseCommand(line string) (string, interface{}, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("empty command")
	}

	switch fields[0] {
	case "start":
		snippet := strings.TrimSpace(strings.TrimPrefix(line, "start"))
		if snippet == "" {
			return "", nil, fmt.Errorf("usage: start <snippet>")
		}
		return network.MsgTypeStart, network.StartPayload{CodeSnippet: snippet}, nil
	case "progress":
		if len(fields) < 3 {
			return "", nil, fmt.Errorf("usage: progress <pct> <wpm>")
		}
		pct, err1 := strconv.ParseFloat(fields[1], 64)
		wpm, err2 := strconv.ParseFloat(fields[2], 64)
		if err1 != nil || err2 != nil {
			return "", nil, fmt.Errorf("progress needs numbers")
		}
		return network.MsgTypeProgress, network.ProgressPayload{Progress: pct, WPM: wpm, Accuracy: 100}, nil
	case "finish":
		if len(fields) < 2 {
			return "", nil, fmt.Errorf("usage: finish <wpm> [accuracy]")
		}
		wpm, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return "", nil, fmt.Errorf("finish needs a number")
		}
		accuracy := 100.0
		if len(fields) > 2 {
			if a, err := strconv.ParseFloat(fields[2], 64); err == nil {
				accuracy = a
			}
		}
		return network.MsgTypeFinish, network.FinishPayload{WPM: wpm, Accuracy: accuracy}, nil
	}
	return "", nil, fmt.Errorf("unknown command %q", fields[0])
}

func main() {
	host := flag.String("server", "localhost:8080", "server host:port")
	code := flag.String("room", "", "room code to join, empty creates a new room")
	userID := flag.String("user", "", "user id")
	name := flag.String("name", "", "display name")
	flag.Parse()

	if *userID == "" {
		*userID = fmt.Sprintf("guest-%d", time.Now().UnixNano()%100000)
	}
	if *code == "" {
		created, err := createRoom(*host, *userID)
		if err != nil {
			log.Fatalf("Create room failed: %v", err)
		}
		*code = created
		log.Printf("Created room %s", created)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	query := url.Values{"room": {*code}, "userId": {*userID}, "username": {*name}}
	u := url.URL{Scheme: "ws", Host: *host, Path: "/ws", RawQuery: query.Encode()}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			msg, err := network.Decode(message)
			if err != nil {
				log.Printf("Received invalid frame: %s", message)
				continue
			}
			log.Printf("<- %s %s", msg.Type, msg.Data)
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	log.Println("Commands: start <snippet> | progress <pct> <wpm> | finish <wpm> [accuracy]")

	// Write loop
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			msgType, payload, err := parseCommand(line)
			if err != nil {
				log.Println(err)
				continue
			}
			if err := send(c, msgType, payload); err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> %s", msgType)
		}
	}
}
