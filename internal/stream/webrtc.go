package stream

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"gopkg.in/hraban/opus.v2"

	"github.com/onairhq/onair/internal/audio"
)

// MonitorHandler negotiates a WebRTC peer that carries the DJ's own
// program signal back as Opus, so the operator can confirm what is
// actually going out without the broadcast round-trip.
type MonitorHandler struct {
	hub     *Hub
	bitrate int

	mu    sync.Mutex
	peers []*webrtc.PeerConnection
}

// NewMonitorHandler creates a WebRTC monitor handler. bitrate is the Opus
// target in bits per second.
func NewMonitorHandler(hub *Hub, bitrate int) *MonitorHandler {
	return &MonitorHandler{hub: hub, bitrate: bitrate}
}

// PeerCount returns the number of active monitor peers.
func (h *MonitorHandler) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

func (h *MonitorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var offer webrtc.SessionDescription
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		http.Error(w, "invalid SDP offer", http.StatusBadRequest)
		return
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		http.Error(w, "create peer connection failed", http.StatusInternalServerError)
		return
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio",
		"onair-monitor",
	)
	if err != nil {
		pc.Close()
		http.Error(w, "create audio track failed", http.StatusInternalServerError)
		return
	}

	if _, err := pc.AddTrack(track); err != nil {
		pc.Close()
		http.Error(w, "add track failed", http.StatusInternalServerError)
		return
	}

	if err := pc.SetRemoteDescription(offer); err != nil {
		pc.Close()
		http.Error(w, "set remote description failed", http.StatusBadRequest)
		return
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		http.Error(w, "create answer failed", http.StatusInternalServerError)
		return
	}

	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		http.Error(w, "set local description failed", http.StatusInternalServerError)
		return
	}

	<-webrtc.GatheringCompletePromise(pc)

	h.mu.Lock()
	h.peers = append(h.peers, pc)
	h.mu.Unlock()

	log.Printf("monitor peer connected (total: %d)", h.PeerCount())

	go h.feedPeer(track)

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		if s == webrtc.PeerConnectionStateFailed ||
			s == webrtc.PeerConnectionStateClosed ||
			s == webrtc.PeerConnectionStateDisconnected {
			h.removePeer(pc)
			pc.Close()
			log.Printf("monitor peer disconnected (remaining: %d)", h.PeerCount())
		}
	})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(pc.LocalDescription())
}

func (h *MonitorHandler) feedPeer(track *webrtc.TrackLocalStaticSample) {
	tap := h.hub.Attach()
	defer h.hub.Detach(tap)

	enc, err := opus.NewEncoder(audio.MonitorSampleRate, audio.Channels, opus.AppAudio)
	if err != nil {
		log.Printf("monitor: opus encoder error: %v", err)
		return
	}
	enc.SetBitrate(h.bitrate)

	opusBuf := make([]byte, 4000)

	for {
		select {
		case <-tap.Done():
			return
		case frame, ok := <-tap.C:
			if !ok {
				return
			}
			n, err := enc.Encode(frame, opusBuf)
			if err != nil {
				log.Printf("monitor: opus encode error: %v", err)
				continue
			}
			if err := track.WriteSample(media.Sample{
				Data:     opusBuf[:n],
				Duration: audio.MonitorFrameDuration,
			}); err != nil {
				return
			}
		}
	}
}

func (h *MonitorHandler) removePeer(pc *webrtc.PeerConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, p := range h.peers {
		if p == pc {
			h.peers = append(h.peers[:i], h.peers[i+1:]...)
			return
		}
	}
}
