package swarm

import (
	"fmt"
	"strings"
)

const (
	// TblParticles is the name of the sql database table that contains
	// positions and values for particles for each iteration.
	TblParticles = "swarmparticles"
	// TblParticlesBest is the name of the sql database table that contains
	// each particle's personal best position at each iteration.
	TblParticlesBest = "swarmparticlesbest"
	// TblBest is the name of the sql database table that contains
	// the best position for the entire swarm at each iteration.
	TblBest = "swarmbest"
)

func (s *Solver) initdb() error {
	if s.db == nil {
		return nil
	}

	stmts := []string{
		"CREATE TABLE IF NOT EXISTS " + TblParticles + " (particle INTEGER, iter INTEGER, val REAL" + s.xdbsql("define") + ");",
		"CREATE TABLE IF NOT EXISTS " + TblParticlesBest + " (particle INTEGER, iter INTEGER, best REAL" + s.xdbsql("define") + ");",
		"CREATE TABLE IF NOT EXISTS " + TblBest + " (iter INTEGER, val REAL" + s.xdbsql("define") + ");",
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("swarm: create trace table: %w", err)
		}
	}
	return nil
}

func (s *Solver) xdbsql(op string) string {
	var b strings.Builder
	for i := 0; i < s.prob.Dim(); i++ {
		switch op {
		case "?":
			b.WriteString(",?")
		case "define":
			fmt.Fprintf(&b, ",x%v REAL", i)
		case "x":
			fmt.Fprintf(&b, ",x%v", i)
		default:
			panic("invalid db op " + op)
		}
	}
	return b.String()
}

func pos2iface(pos []float64) []any {
	iface := make([]any, 0, len(pos))
	for _, v := range pos {
		iface = append(iface, v)
	}
	return iface
}

func (s *Solver) updateDb() (err error) {
	if s.db == nil {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("swarm: begin trace transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			err = fmt.Errorf("swarm: record iteration %d: %w", s.count, err)
			return
		}
		err = tx.Commit()
	}()

	s0 := "INSERT INTO " + TblParticles + " (particle,iter,val" + s.xdbsql("x") + ") VALUES (?,?,?" + s.xdbsql("?") + ");"
	s1 := "INSERT INTO " + TblParticlesBest + " (particle,iter,best" + s.xdbsql("x") + ") VALUES (?,?,?" + s.xdbsql("?") + ");"
	n, _ := s.pos.Dims()
	for i := 0; i < n; i++ {
		args := []any{i, s.count, s.scores[i]}
		args = append(args, pos2iface(s.pos.RawRowView(i))...)
		if _, err := tx.Exec(s0, args...); err != nil {
			return err
		}

		args = []any{i, s.count, s.bestScores[i]}
		args = append(args, pos2iface(s.best.RawRowView(i))...)
		if _, err := tx.Exec(s1, args...); err != nil {
			return err
		}
	}

	s2 := "INSERT INTO " + TblBest + " (iter,val" + s.xdbsql("x") + ") VALUES (?,?" + s.xdbsql("?") + ");"
	args := []any{s.count, s.bestScores[s.gbest]}
	args = append(args, pos2iface(s.best.RawRowView(s.gbest))...)
	if _, err := tx.Exec(s2, args...); err != nil {
		return err
	}
	return nil
}
