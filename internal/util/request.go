package util

import (
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"strings"
)

// RateLimitKeyPrefix namespaces limiter identifiers so they cannot collide
// with keys written by other subsystems sharing the same store.
const RateLimitKeyPrefix = "rate-limit:"

func GenerateRequestID() string {
	gauges := []string{
		"vernier", "dial", "digital", "inside", "outside",
		"depth", "spring", "firm", "steady", "slide",
	}
	actions := []string{
		"measuring", "guessing", "marking", "scoring", "zeroing",
		"sliding", "reading", "checking", "closing", "opening",
	}

	gauge := gauges[rand.Intn(len(gauges))]
	action := actions[rand.Intn(len(actions))]
	suffix := fmt.Sprintf("%04x", rand.Intn(65536))

	return fmt.Sprintf("%s_%s_%s", gauge, action, suffix)
}

// GetClientIP resolves the client address, honouring proxy headers only when
// the peer is inside a trusted CIDR.
func GetClientIP(r *http.Request, trustProxyHeaders bool, trustedCIDRs []*net.IPNet) string {
	if !trustProxyHeaders {
		if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return ip
		}
		return r.RemoteAddr
	}

	sourceIP := getSourceIP(r)
	if sourceIP == nil || !isIPInTrustedCIDRs(sourceIP, trustedCIDRs) {
		if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return ip
		}
		return r.RemoteAddr
	}

	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}

	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

// RateLimitIdentifier derives the limiter key for a request: first entry of
// X-Forwarded-For, then X-Real-IP, then the literal "unknown". The result is
// always namespaced with RateLimitKeyPrefix.
func RateLimitIdentifier(r *http.Request) string {
	ip := "unknown"

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ip = strings.TrimSpace(strings.Split(forwarded, ",")[0])
	} else if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		ip = strings.TrimSpace(realIP)
	}

	return RateLimitKeyPrefix + ip
}

func getSourceIP(r *http.Request) net.IP {
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return net.ParseIP(ip)
	}
	return net.ParseIP(r.RemoteAddr)
}
