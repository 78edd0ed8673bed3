// Command ask is a terminal client for the resolve API.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"resume-qa-be/internal/dto"
	"resume-qa-be/internal/pkg/serverutils"

	"github.com/fatih/color"
)

var client = &http.Client{Timeout: 60 * time.Second}

func sendRequest(method, url string, body interface{}, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}
	return json.Unmarshal(raw, out)
}

func printAnswer(res *dto.AskResponse) {
	switch res.Status {
	case "OK":
		color.Green("%s", res.Answer)
	case "NEEDS_EDIT":
		color.Yellow("%s", res.Answer)
	default:
		color.Red("%s", res.Answer)
	}

	meta := color.New(color.FgHiBlack)
	meta.Printf("  status=%s action=%s confidence=%.2f origin=%s latency=%dms\n",
		res.Status, res.Action, res.Confidence, res.Origin, res.LatencyMs)
	if res.Origin == "cache" {
		meta.Printf("  cache score=%.3f\n", res.CacheScore)
	}
	if len(res.Sources) > 0 {
		meta.Printf("  sources=%s\n", strings.Join(res.Sources, ", "))
	}
	if res.EscalationId != "" {
		meta.Printf("  escalation=%s\n", res.EscalationId)
	}
	if res.Degraded {
		color.Magenta("  (degraded: retrieval was unavailable)")
	}
}

func main() {
	baseURL := flag.String("url", "http://localhost:3000/api", "API base URL")
	lang := flag.String("lang", "zh-TW", "question language (zh-TW or en)")
	question := flag.String("q", "", "ask one question and exit")
	showStats := flag.Bool("stats", false, "print pipeline stats and exit")
	flag.Parse()

	askURL := *baseURL + "/resolve/v1/ask"
	statsURL := *baseURL + "/resolve/v1/stats"

	if *showStats {
		var res serverutils.BaseResponse[dto.StatsResponse]
		if err := sendRequest("GET", statsURL, nil, &res); err != nil {
			color.Red("Failed: %v", err)
			os.Exit(1)
		}
		s := res.Data
		color.Cyan("requests=%d cache_hits=%d (%.0f%%) dedup_hits=%d cache_size=%d avg_latency=%dms escalations=%d admissions=%d",
			s.Requests, s.CacheHits, s.CacheHitRate*100, s.DedupHits, s.CacheSize, s.AverageLatencyMs, s.Escalations, s.Admissions)
		return
	}

	var history []dto.ConversationTurn
	ask := func(text string) bool {
		req := dto.AskRequest{Question: text, Language: *lang, Context: history}
		var res serverutils.BaseResponse[dto.AskResponse]
		if err := sendRequest("POST", askURL, req, &res); err != nil {
			color.Red("Failed: %v", err)
			return false
		}
		printAnswer(&res.Data)
		history = append(history,
			dto.ConversationTurn{Role: "user", Content: text},
			dto.ConversationTurn{Role: "assistant", Content: res.Data.Answer},
		)
		if len(history) > 10 {
			history = history[len(history)-10:]
		}
		return true
	}

	if *question != "" {
		if !ask(*question) {
			os.Exit(1)
		}
		return
	}

	color.Cyan("Ask about the résumé (empty line or Ctrl-D to quit)")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			break
		}
		ask(text)
	}
}
