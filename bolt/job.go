/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package bolt

// job is an owner-neutral node in the session's list of active result
// streams. notify fires exactly once when the session tears down, so each
// stream can enter a terminal state.
type job struct {
	prev, next *job
	notify     func()
	attached   bool
}

// jobList is intrusive and doubly linked: attach and detach are O(1), and
// notification order is unspecified.
type jobList struct {
	head *job
}

func (l *jobList) attach(j *job) {
	j.prev, j.next = nil, l.head
	if l.head != nil {
		l.head.prev = j
	}
	l.head = j
	j.attached = true
}

func (l *jobList) detach(j *job) {
	if !j.attached {
		return
	}
	if j.prev != nil {
		j.prev.next = j.next
	} else {
		l.head = j.next
	}
	if j.next != nil {
		j.next.prev = j.prev
	}
	j.prev, j.next = nil, nil
	j.attached = false
}

// notifyAll detaches and notifies every job exactly once.
func (l *jobList) notifyAll() {
	for l.head != nil {
		j := l.head
		l.detach(j)
		if j.notify != nil {
			j.notify()
		}
	}
}
