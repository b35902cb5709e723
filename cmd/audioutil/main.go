package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
)

// audioutil streams a local audio file to a running server as a sequence of
// voice chunks, either over the REST chunk endpoint or the WebSocket
// transport, and prints each pipeline result. Useful for exercising the
// voice turn flow end to end without a mobile client.

type wsMessage struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content"`
}

func main() {
	serverPtr := flag.String("server", "http://localhost:8081", "Server base URL")
	chatPtr := flag.Uint("chat", 0, "Chat ID to stream into")
	tokenPtr := flag.String("token", os.Getenv("AUDIOUTIL_TOKEN"), "JWT bearer token")
	filePtr := flag.String("file", "", "Audio file to stream")
	formatPtr := flag.String("format", "m4a", "Audio container format of the file")
	chunkPtr := flag.Int("chunk-bytes", 32*1024, "Bytes per streamed chunk")
	wsPtr := flag.Bool("ws", false, "Stream over WebSocket instead of REST")
	helpPtr := flag.Bool("help", false, "Show usage information")

	flag.Parse()

	if *helpPtr || *chatPtr == 0 || *filePtr == "" {
		fmt.Println("Voice streaming tool usage:")
		fmt.Println("  -server       Server base URL (default http://localhost:8081)")
		fmt.Println("  -chat         Chat ID to stream into (required)")
		fmt.Println("  -token        JWT bearer token (or AUDIOUTIL_TOKEN env var)")
		fmt.Println("  -file         Audio file to stream (required)")
		fmt.Println("  -format       Audio container format (default m4a)")
		fmt.Println("  -chunk-bytes  Bytes per streamed chunk (default 32768)")
		fmt.Println("  -ws           Stream over WebSocket instead of REST")
		fmt.Println("  -help         Show this help message")
		os.Exit(0)
	}

	data, err := os.ReadFile(*filePtr)
	if err != nil {
		log.Fatalf("Failed to read audio file: %v", err)
	}
	chunks := splitChunks(data, *chunkPtr)
	log.Printf("Streaming %d bytes as %d chunks", len(data), len(chunks))

	if *wsPtr {
		streamWebSocket(*serverPtr, *chatPtr, *tokenPtr, *formatPtr, chunks)
		return
	}
	streamREST(*serverPtr, *chatPtr, *tokenPtr, *formatPtr, chunks)
}

func splitChunks(data []byte, size int) [][]byte {
	if size <= 0 {
		size = 32 * 1024
	}
	var chunks [][]byte
	for len(data) > 0 {
		n := size
		if n > len(data) {
			n = len(data)
		}
		chunks = append(chunks, data[:n])
		data = data[n:]
	}
	return chunks
}

// streamREST posts each chunk to the voice endpoint and prints the result,
// then clears any partial turn state.
func streamREST(server string, chatID uint, token, format string, chunks [][]byte) {
	client := &http.Client{Timeout: 60 * time.Second}
	url := fmt.Sprintf("%s/api/v1/chats/%d/voice?format=%s", server, chatID, format)

	for i, chunk := range chunks {
		req, err := http.NewRequest("POST", url, bytes.NewReader(chunk))
		if err != nil {
			log.Fatalf("Failed to create request: %v", err)
		}
		req.Header.Set("Content-Type", "application/octet-stream")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := client.Do(req)
		if err != nil {
			log.Fatalf("Failed to send chunk %d: %v", i, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		log.Printf("Chunk %d/%d: status=%d body=%s", i+1, len(chunks), resp.StatusCode, body)
	}

	req, err := http.NewRequest("DELETE", fmt.Sprintf("%s/api/v1/chats/%d/voice", server, chatID), nil)
	if err != nil {
		log.Fatalf("Failed to create cleanup request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("Failed to clear voice state: %v", err)
	}
	resp.Body.Close()
	log.Printf("Cleared voice state: status=%d", resp.StatusCode)
}

// streamWebSocket sends chunks as JSON audio frames and prints every server
// frame until interrupted or the stream has been sent and a turn observed.
func streamWebSocket(server string, chatID uint, token, format string, chunks [][]byte) {
	wsURL := fmt.Sprintf("ws%s/ws?chatId=%d&token=%s", server[len("http"):], chatID, token)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("Error connecting to WebSocket: %v", err)
	}
	defer conn.Close()
	log.Println("Connected to WebSocket")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				log.Printf("WebSocket read error: %v", err)
				return
			}
			var frame wsMessage
			if err := json.Unmarshal(message, &frame); err != nil {
				log.Printf("Error unmarshaling frame: %v", err)
				continue
			}
			switch frame.Type {
			case "turn":
				log.Printf("Turn complete: %+v", frame.Content)
			case "turn_error":
				log.Printf("Turn error: %+v", frame.Content)
			case "listening":
				log.Println("Chunk buffered")
			case "pong":
			default:
				log.Printf("Frame %s: %+v", frame.Type, frame.Content)
			}
		}
	}()

	for i, chunk := range chunks {
		frame := wsMessage{
			Type: "audio",
			Content: map[string]string{
				"data":   base64.StdEncoding.EncodeToString(chunk),
				"format": format,
			},
		}
		if err := conn.WriteJSON(frame); err != nil {
			log.Fatalf("Failed to send chunk %d: %v", i, err)
		}
		// Pace like a live recorder so the server sees a stream, not a blob.
		time.Sleep(250 * time.Millisecond)
	}
	log.Println("All chunks sent, waiting for results. Press Ctrl+C to exit...")

	select {
	case <-done:
	case <-interrupt:
		log.Println("Interrupt received, shutting down...")
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if err != nil {
			log.Printf("Error during closing websocket: %v", err)
		}
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	case <-time.After(30 * time.Second):
		log.Println("Timed out waiting for final result")
	}
}
