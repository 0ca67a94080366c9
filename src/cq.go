package elevator

/*------------------------------------------------------------------
 *
 * Purpose:   	Stop queue - floors a car has promised to visit.
 *
 * Description:	The controller appends a pickup and its destination
 *		when it grants a call, and removes the head when the
 *		car reports arrival there.  The head of the queue is
 *		what drives the FLOOR frame sent to the car.
 *
 *		The ordering rule matters: a rider must be picked up
 *		before being delivered, so for every (src, dst) pair
 *		enqueued together, src sits ahead of dst.  A floor
 *		appears at most once no matter how many calls name it.
 *
 *		All of these run with the controller registry mutex
 *		held; the queue itself has no locking of its own.
 *
 *---------------------------------------------------------------*/

/*-------------------------------------------------------------------
 *
 * Name:        cq_index
 *
 * Purpose:     Position of a floor in the queue, or -1.
 *
 *--------------------------------------------------------------------*/

func cq_index(queue []int, f int) int {
	for i, v := range queue {
		if v == f {
			return i
		}
	}
	return -1
}

/*-------------------------------------------------------------------
 *
 * Name:        cq_enqueue
 *
 * Purpose:     Add a call's pickup and destination to the queue.
 *
 * Inputs:	queue	- Current stop queue.
 *		src	- Pickup floor.
 *		dst	- Destination floor.
 *
 * Returns:	The updated queue.
 *
 * Description:	A floor already queued is not queued again.  If the
 *		destination is already queued ahead of the pickup it
 *		is moved behind it, because the new rider is not on
 *		board until the car has stopped at src.  Appends that
 *		would exceed capacity are dropped silently.
 *
 *--------------------------------------------------------------------*/

func cq_enqueue(queue []int, src int, dst int) []int {
	if src == dst {
		return queue
	}

	if cq_index(queue, src) < 0 && len(queue) < MAX_QUEUE_STOPS {
		queue = append(queue, src)
	}

	var src_at = cq_index(queue, src)
	var dst_at = cq_index(queue, dst)

	if dst_at >= 0 && src_at >= 0 && dst_at < src_at {
		queue = append(queue[:dst_at], queue[dst_at+1:]...)
	}

	if cq_index(queue, dst) < 0 && len(queue) < MAX_QUEUE_STOPS {
		queue = append(queue, dst)
	}

	return queue
}

/*-------------------------------------------------------------------
 *
 * Name:        cq_head
 *
 * Purpose:     Next floor the car should go to.
 *
 * Returns:	The head floor and true, or 0 and false when empty.
 *
 *--------------------------------------------------------------------*/

func cq_head(queue []int) (int, bool) {
	if len(queue) == 0 {
		return 0, false
	}
	return queue[0], true
}

/*-------------------------------------------------------------------
 *
 * Name:        cq_pop_head
 *
 * Purpose:     The car has arrived at the head floor; drop it.
 *
 *--------------------------------------------------------------------*/

func cq_pop_head(queue []int) []int {
	if len(queue) == 0 {
		return queue
	}
	return queue[1:]
}
