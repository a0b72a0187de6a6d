package cycle

// EpochMaintenance runs the epoch-boundary maintenance instruction:
// advances current_epoch when the runtime-reported epoch is ahead and
// both removal bitsets are empty; otherwise it drains every flagged
// removal it finds and returns without advancing, so a later call can
// advance. The scan for the next-to-remove index ranges over
// max(num_pool_validators, validatorListLen): a shrunk validator_list
// must never strand high removal bits outside the scan, or advancement
// blocks forever.
//
// remover is called once per drained bit with the history index to
// remove; it is the caller's job to actually pull that validator out of
// the external pool's validator_list before this returns success
// for that bit.
func (m *Machine) EpochMaintenance(runtimeEpoch uint64, validatorListLen int, remover func(historyIndex int) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	const instr = "epoch_maintenance"

	upperBound := len(m.state.HistoryIndices)
	if validatorListLen > upperBound {
		upperBound = validatorListLen
	}

	drainedAny := false
	for {
		idx, found := m.state.ValidatorsForImmediateRemoval.NextSet(0, upperBound)
		if !found {
			idx, found = m.state.ValidatorsToRemove.NextSet(0, upperBound)
		}
		if !found {
			break
		}
		// idx is a POSITION within the pool's validator_list array,
		// not a history index. A bit set at a position beyond the
		// current (possibly already-shrunk) array is exactly the stuck
		// case above: it is still drained here, just with no live
		// validator behind it.
		if idx < len(m.state.HistoryIndices) {
			historyIndex := m.state.HistoryIndices[idx]
			if err := remover(historyIndex); err != nil {
				return m.fail(instr, err)
			}
			m.state.removeAtPosition(idx)
		}
		m.state.ValidatorsForImmediateRemoval.Clear(idx)
		m.state.ValidatorsToRemove.Clear(idx)
		// removeAtPosition moved the validator at the old last position
		// into idx; its removal flags move with it.
		if last := len(m.state.HistoryIndices); idx < last {
			if m.state.ValidatorsForImmediateRemoval.Get(last) {
				m.state.ValidatorsForImmediateRemoval.Clear(last)
				m.state.ValidatorsForImmediateRemoval.Set(idx)
			}
			if m.state.ValidatorsToRemove.Get(last) {
				m.state.ValidatorsToRemove.Clear(last)
				m.state.ValidatorsToRemove.Set(idx)
			}
		}
		drainedAny = true
	}

	if drainedAny {
		// Removal bitsets nonempty at call time means advancement is
		// deferred; having just drained everything found, a subsequent
		// call will observe both bitsets empty and may advance.
		return nil
	}

	if !m.state.ValidatorsForImmediateRemoval.IsEmpty() || !m.state.ValidatorsToRemove.IsEmpty() {
		// Should not happen given the drain loop above ran to
		// exhaustion, but guards against a remover that re-flags a
		// validator for removal as a side effect.
		return nil
	}

	if runtimeEpoch > m.state.CurrentEpoch {
		m.state.CurrentEpoch = runtimeEpoch
		m.metrics.CycleAge(m.state.CurrentEpoch - m.state.CycleStartEpoch)

		if m.state.CurrentEpoch-m.state.CycleStartEpoch >= uint64(m.cfg.NumEpochsBetweenScoring) {
			m.transition(PhaseComputeScores)
		}
	}

	return nil
}
