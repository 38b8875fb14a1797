package ratelimit

import (
	"fmt"
	"log"
	"sync"
)

// Limiter caps AI calls for a single run. A run is a short-lived cron
// process, so budgets are per-process and never reset.
type Limiter struct {
	mu          sync.Mutex
	geminiCount int
	imagenCount int
	totalCount  int
	maxGemini   int
	maxImagen   int
	maxTotal    int
}

// New creates a limiter. A limit of 0 means unlimited for that service.
func New(maxGemini, maxImagen, maxTotal int) *Limiter {
	return &Limiter{
		maxGemini: maxGemini,
		maxImagen: maxImagen,
		maxTotal:  maxTotal,
	}
}

// CanUseGemini checks if a text generation request fits the budget.
func (rl *Limiter) CanUseGemini() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.maxGemini > 0 && rl.geminiCount >= rl.maxGemini {
		log.Printf("⚠️ Gemini budget reached (%d/%d)", rl.geminiCount, rl.maxGemini)
		return false
	}

	if rl.maxTotal > 0 && rl.totalCount >= rl.maxTotal {
		log.Printf("⚠️ Total AI budget reached (%d/%d)", rl.totalCount, rl.maxTotal)
		return false
	}

	return true
}

// CanUseImagen checks if an image generation request fits the budget.
func (rl *Limiter) CanUseImagen() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.maxImagen > 0 && rl.imagenCount >= rl.maxImagen {
		log.Printf("⚠️ Imagen budget reached (%d/%d)", rl.imagenCount, rl.maxImagen)
		return false
	}

	if rl.maxTotal > 0 && rl.totalCount >= rl.maxTotal {
		log.Printf("⚠️ Total AI budget reached (%d/%d)", rl.totalCount, rl.maxTotal)
		return false
	}

	return true
}

// UseGemini spends one text generation request.
func (rl *Limiter) UseGemini() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.maxGemini > 0 && rl.geminiCount >= rl.maxGemini {
		return fmt.Errorf("gemini budget exceeded")
	}

	if rl.maxTotal > 0 && rl.totalCount >= rl.maxTotal {
		return fmt.Errorf("total AI budget exceeded")
	}

	rl.geminiCount++
	rl.totalCount++

	return nil
}

// UseImagen spends one image generation request.
func (rl *Limiter) UseImagen() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.maxImagen > 0 && rl.imagenCount >= rl.maxImagen {
		return fmt.Errorf("imagen budget exceeded")
	}

	if rl.maxTotal > 0 && rl.totalCount >= rl.maxTotal {
		return fmt.Errorf("total AI budget exceeded")
	}

	rl.imagenCount++
	rl.totalCount++

	return nil
}

// GetStats returns current usage numbers.
func (rl *Limiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]interface{}{
		"gemini_used":  rl.geminiCount,
		"gemini_limit": rl.maxGemini,
		"imagen_used":  rl.imagenCount,
		"imagen_limit": rl.maxImagen,
		"total_used":   rl.totalCount,
		"total_limit":  rl.maxTotal,
	}
}

// PrintStats logs usage at the end of a run.
func (rl *Limiter) PrintStats() {
	stats := rl.GetStats()
	log.Printf("📊 AI usage: Gemini=%d/%d, Imagen=%d/%d, Total=%d/%d",
		stats["gemini_used"], stats["gemini_limit"],
		stats["imagen_used"], stats["imagen_limit"],
		stats["total_used"], stats["total_limit"])
}
