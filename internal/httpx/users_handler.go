package httpx

import "net/http"

type RegisterReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResp struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterReq
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	u, err := s.Accounts.Register(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "registered", toUserDTO(u))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req LoginReq
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	tok, u, err := s.Accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "logged in", LoginResp{Token: tok, User: toUserDTO(u)})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	us, err := s.Accounts.List(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", mapSlice(us, toUserDTO))
}
