package keys

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteKeypairFile saves a keypair in the solana-cli JSON format: an
// array of the 64 private key bytes as numbers.
func WriteKeypairFile(path string, kp Keypair) error {
	raw := kp.Bytes()
	nums := make([]int, len(raw))
	for i, b := range raw {
		nums[i] = int(b)
	}
	data, err := json.Marshal(nums)
	if err != nil {
		return fmt.Errorf("marshal keypair: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write keypair file %s: %w", path, err)
	}
	return nil
}

// ReadKeypairFile loads a solana-cli compatible keypair JSON file.
func ReadKeypairFile(path string) (Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Keypair{}, fmt.Errorf("read keypair file %s: %w", path, err)
	}
	var nums []int
	if err := json.Unmarshal(data, &nums); err != nil {
		return Keypair{}, fmt.Errorf("parse keypair file %s: %w", path, err)
	}
	raw := make([]byte, len(nums))
	for i, n := range nums {
		if n < 0 || n > 255 {
			return Keypair{}, fmt.Errorf("parse keypair file %s: byte %d out of range", path, i)
		}
		raw[i] = byte(n)
	}
	kp, err := FromBytes(raw)
	if err != nil {
		return Keypair{}, fmt.Errorf("keypair file %s: %w", path, err)
	}
	return kp, nil
}

// SaveWallets writes each keypair into dir as id000000.json, id000001.json
// and so on, returning the written paths. dir must already exist.
func SaveWallets(dir string, kps []Keypair) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("wallet save dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("wallet save dir %s: not a directory", dir)
	}
	paths := make([]string, 0, len(kps))
	for i, kp := range kps {
		path := filepath.Join(dir, fmt.Sprintf("id%06d.json", i))
		if err := WriteKeypairFile(path, kp); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
