package server

import (
	"fmt"
	"net/http"
)

// handleTrackerJS serves the client tracker script embedded in every
// rendered landing page.
func (s *Server) handleTrackerJS(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	serverURL := fmt.Sprintf("%s://%s", scheme, r.Host)

	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.Write([]byte(GenerateTrackerScript(serverURL)))
}

// GenerateTrackerScript builds lp.js with the given server URL baked in.
// The script sends pageview/click/scroll events via fetch and the exit
// event via navigator.sendBeacon, which is why the exit endpoint may never
// return a non-200 response.
func GenerateTrackerScript(serverURL string) string {
	return fmt.Sprintf(`(function(){
  var S='%s';
  var cfg=window.lpforge||{};
  var lpId=cfg.lpId;
  var sessionId=cfg.sessionId;
  if(!lpId||!sessionId)return;

  var start=Date.now();
  var maxScroll=0;

  function send(path,body){
    try{
      fetch(S+'/api/tracking/'+path,{
        method:'POST',
        headers:{'Content-Type':'application/json'},
        body:JSON.stringify(body),
        keepalive:true
      });
    }catch(e){}
  }

  send('pageview',{lpId:lpId,sessionId:sessionId});

  document.querySelectorAll('[data-lp-component]').forEach(function(el){
    var componentId=el.getAttribute('data-lp-component');
    var variant=el.getAttribute('data-lp-variant');
    send('component',{lpId:lpId,sessionId:sessionId,componentId:componentId,variant:variant});
    el.addEventListener('click',function(){
      send('component',{lpId:lpId,sessionId:sessionId,eventType:'click',componentId:componentId,variant:variant});
    });
  });

  window.addEventListener('scroll',function(){
    var h=document.documentElement;
    var depth=Math.round((h.scrollTop+window.innerHeight)/h.scrollHeight*100);
    if(depth>maxScroll){
      maxScroll=depth;
      if(depth>=25&&depth%%25===0){
        send('scroll',{lpId:lpId,sessionId:sessionId,data:{depth:depth}});
      }
    }
  },{passive:true});

  window.lpforgeConvert=function(componentId,variant,type){
    send('conversion',{lpId:lpId,sessionId:sessionId,componentId:componentId,variant:variant,data:{type:type||'default'}});
  };

  window.addEventListener('pagehide',function(){
    var payload=JSON.stringify({
      lpId:lpId,
      sessionId:sessionId,
      data:{timeOnPage:Math.round((Date.now()-start)/1000),scrollDepth:maxScroll}
    });
    if(navigator.sendBeacon){
      navigator.sendBeacon(S+'/api/tracking/exit',new Blob([payload],{type:'application/json'}));
    }
  });
})();
`, serverURL)
}
