package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/daveminer/dapp-punks/pkg/allowlist"
	"github.com/daveminer/dapp-punks/pkg/merkle"
)

// RootResponse is the body of GET /root
type RootResponse struct {
	Root string `json:"root"`
}

// ProofResponse is the body of GET /proof. Proof elements pair bottom-up:
// the external verifier folds them into the leaf in order and compares
// against the on-chain root.
type ProofResponse struct {
	Address   string   `json:"address"`
	LeafIndex int      `json:"leafIndex"`
	Leaf      string   `json:"leaf"`
	Proof     []string `json:"proof"`
	Root      string   `json:"root"`
}

// ErrorResponse is the body of any non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleRoot returns the committed merkle root
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, RootResponse{Root: s.allowlist.RootHex()})
}

// handleProof returns the inclusion proof for ?address=0x...
func (s *Server) handleProof(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	address := r.URL.Query().Get("address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "missing address parameter")
		return
	}

	proof, err := s.allowlist.ProofFor(address)
	if err != nil {
		switch {
		case errors.Is(err, merkle.ErrInvalidAddress):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, allowlist.ErrAddressNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			s.logger.Sugar().Errorw("Proof generation failed", "address", address, "error", err)
			writeError(w, http.StatusInternalServerError, "proof generation failed")
		}
		return
	}

	addr, _ := merkle.NormalizeAddress(address)

	writeJSON(w, http.StatusOK, ProofResponse{
		Address:   merkle.CanonicalAddressHex(addr),
		LeafIndex: proof.LeafIndex,
		Leaf:      hexutil.Encode(proof.Leaf[:]),
		Proof:     proof.SiblingsHex(),
		Root:      s.allowlist.RootHex(),
	})
}

// handleHealthz reports liveness
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
