package internal

// Merge merges the remote state into local.
//
// Every peer in the remote directory is added to the local directory,
// overwriting any existing name, and announced as joined.
//
// The remote history is only replayed if the local history is empty, so a
// node that already has history keeps it and a new node bootstraps its
// history from the first peer that responds.
func Merge(local *State, remote *State, notifier Notifier) {
	for _, entry := range remote.Directory.Entries() {
		local.Directory.Upsert(entry.PeerID, entry.Name)
		notifier.NotifyJoin(entry.Name)
	}

	if local.History.Count() < 1 && remote.History.Count() > 0 {
		for e := range remote.History.All() {
			notifier.NotifyMessage(local.Directory.Resolve(e.Source), e.Payload)
			local.History.Insert(e)
		}
	}
}
