package state

import "time"

// MinerStatus represents the state of the local miner.
type MinerStatus struct {
	State string `json:"state"`
	Mined uint64 `json:"mined"`
}

// StartMining moves the miner into the running state. The miner sleeps for
// the interval after each mined block.
func (s *State) StartMining(interval time.Duration) error {
	return s.handle.Start(interval)
}

// ExitMining shuts the miner down. A stopped miner can not be restarted.
func (s *State) ExitMining() error {
	return s.handle.Exit()
}

// RetrieveMinerStatus returns the operating state of the miner.
func (s *State) RetrieveMinerStatus() MinerStatus {
	return MinerStatus{
		State: s.miner.State().String(),
		Mined: s.miner.Mined(),
	}
}

