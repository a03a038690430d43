package queue

// Item is the minimal data placed on the queue.
// Workers fetch the full Job from the DB using the ID,
// keeping the queue lightweight and the stored row authoritative.
type Item struct {
	JobID    string
	Priority int
}
